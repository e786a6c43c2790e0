package httpvendor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/aks-o/voxlink-sub005/provider"
)

const (
	testKey    = "key-123"
	testSecret = "s3cret"
)

// vendor is a fake vendor API that checks bearer tokens.
type vendor struct {
	t   *testing.T
	mux *http.ServeMux
}

func newVendor(t *testing.T) *vendor {
	return &vendor{t: t, mux: http.NewServeMux()}
}

func (v *vendor) handle(pattern string, fn http.HandlerFunc) {
	v.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := checkToken(r); err != nil {
			v.t.Errorf("%s: bad token: %v", pattern, err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fn(w, r)
	})
}

func checkToken(r *http.Request) error {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(testKey))
	return err
}

func (v *vendor) client(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(v.mux)
	t.Cleanup(srv.Close)

	c, err := New(Config{ID: "acme", BaseURL: srv.URL + "/v1", APIKey: testKey, APISecret: testSecret})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SearchNumbers(t *testing.T) {
	v := newVendor(t)
	v.handle("GET /v1/numbers/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("country") != "US" || q.Get("area_code") != "212" || q.Get("capabilities") != "voice,sms" || q.Get("limit") != "5" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{
			"numbers": [
				{"phone_number": "+12125550100", "country_code": "us", "area_code": "212",
				 "locality": "New York", "monthly_rate": "1.005", "setup_fee": "0.50",
				 "capabilities": ["VOICE", "sms"]},
				{"phone_number": "+12125550101", "country_code": "US", "monthly_rate": 12,
				 "setup_fee": "0", "currency": "usd"}
			],
			"total_count": 40
		}`))
	})
	c := v.client(t)

	resp, err := c.SearchNumbers(context.Background(), provider.SearchRequest{
		CountryCode: "us",
		AreaCode:    "212",
		Features:    []provider.Feature{provider.FeatureVoice, provider.FeatureSMS},
		Limit:       5,
	})
	if err != nil {
		t.Fatalf("SearchNumbers() error = %v", err)
	}
	if resp.TotalCount != 40 || resp.SearchID == "" || resp.Provider != "acme" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Numbers) != 2 {
		t.Fatalf("len(Numbers) = %d, want 2", len(resp.Numbers))
	}

	first := resp.Numbers[0]
	if first.MonthlyRate != 101 || first.SetupFee != 50 {
		t.Errorf("prices = %d/%d, want 101/50", first.MonthlyRate, first.SetupFee)
	}
	if first.CountryCode != "US" || first.City != "New York" || first.Currency != "USD" {
		t.Errorf("first = %+v", first)
	}
	if !first.HasFeature(provider.FeatureVoice) || !first.HasFeature(provider.FeatureSMS) {
		t.Errorf("features = %v", first.Features)
	}
	if got := resp.Numbers[1].MonthlyRate; got != 1200 {
		t.Errorf("numeric price = %d, want 1200", got)
	}
}

func TestClient_SearchErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantFailure bool
	}{
		{"server error", http.StatusInternalServerError, `{"code":"internal","message":"db down"}`, true},
		{"throttled", http.StatusTooManyRequests, ``, true},
		{"bad request", http.StatusBadRequest, `{"message":"bad country"}`, false},
		{"malformed body", http.StatusOK, `{"numbers": [`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVendor(t)
			v.handle("GET /v1/numbers/search", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := v.client(t)

			_, err := c.SearchNumbers(context.Background(), provider.SearchRequest{CountryCode: "US"})
			var pe *provider.Error
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *provider.Error", err)
			}
			if pe.Provider != "acme" || pe.Op != "search" {
				t.Errorf("error = %+v", pe)
			}
			if tt.status != http.StatusOK && pe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.status)
			}
			if got := provider.IsFailure(err); got != tt.wantFailure {
				t.Errorf("IsFailure() = %v, want %v", got, tt.wantFailure)
			}
		})
	}
}

func TestClient_SearchErrorMessage(t *testing.T) {
	v := newVendor(t)
	v.handle("GET /v1/numbers/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, wireError{Code: "upstream", Message: "carrier timeout"})
	})
	c := v.client(t)

	_, err := c.SearchNumbers(context.Background(), provider.SearchRequest{CountryCode: "US"})
	want := "provider acme: search: status 502: upstream: carrier timeout"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestClient_CheckAvailability(t *testing.T) {
	v := newVendor(t)
	v.handle("GET /v1/numbers/{number}/availability", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("number") {
		case "+12125550100":
			writeJSON(w, http.StatusOK, wireAvailability{Available: true})
		case "+12125550101":
			writeJSON(w, http.StatusOK, wireAvailability{Available: false})
		case "+12125550102":
			w.WriteHeader(http.StatusGone)
		case "+12125550103":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := v.client(t)

	tests := []struct {
		phone   string
		want    bool
		wantErr bool
	}{
		{"+12125550100", true, false},
		{"+12125550101", false, false},
		{"+12125550102", false, false},
		{"+12125550199", false, false},
		{"+12125550103", false, true},
	}
	for _, tt := range tests {
		got, err := c.CheckAvailability(context.Background(), tt.phone)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckAvailability(%s) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("CheckAvailability(%s) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}

func TestClient_CheckAvailabilityEscapesNumber(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, wireAvailability{Available: false})
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{ID: "acme", BaseURL: srv.URL + "/v1", APIKey: testKey, APISecret: testSecret})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.CheckAvailability(context.Background(), "+1/../ports"); err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if want := "/v1/numbers/+1%2F..%2Fports/availability"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
}

func TestClient_Reserve(t *testing.T) {
	expires := time.Date(2026, 5, 1, 12, 15, 0, 0, time.UTC)
	v := newVendor(t)
	v.handle("POST /v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		var body wireReserveRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.PhoneNumber == "+12125550101" {
			writeJSON(w, http.StatusConflict, wireError{Message: "number taken"})
			return
		}
		if body.DurationMinutes != 15 || body.Customer.AccountID != "acct-1" {
			t.Errorf("body = %+v", body)
		}
		writeJSON(w, http.StatusCreated, wireReservation{ReservationID: "r-1", ExpiresAt: expires})
	})
	c := v.client(t)
	ctx := context.Background()

	res, err := c.Reserve(ctx, provider.ReserveRequest{
		PhoneNumber: "+12125550100",
		Duration:    15 * time.Minute,
		Customer:    provider.CustomerInfo{AccountID: "acct-1", Name: "Ada"},
	})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if res.ReservationID != "r-1" || res.PhoneNumber != "+12125550100" || !res.ExpiresAt.Equal(expires) || res.Provider != "acme" {
		t.Errorf("Reserve() = %+v", res)
	}

	_, err = c.Reserve(ctx, provider.ReserveRequest{PhoneNumber: "+12125550101"})
	if !errors.Is(err, provider.ErrNotAvailable) {
		t.Errorf("conflict error = %v, want ErrNotAvailable", err)
	}
	if provider.IsFailure(err) {
		t.Error("conflict counted as a provider failure")
	}
}

func TestClient_Purchase(t *testing.T) {
	activated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newVendor(t)
	v.handle("POST /v1/purchases", func(w http.ResponseWriter, r *http.Request) {
		var body wirePurchaseRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body.ReservationID {
		case "r-1":
			writeJSON(w, http.StatusOK, wirePurchase{PurchaseID: "p-1", PhoneNumber: "+12125550100", Status: "provisioned", ActivationDate: &activated})
		case "r-expired":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := v.client(t)
	ctx := context.Background()

	p, err := c.Purchase(ctx, provider.PurchaseRequest{ReservationID: "r-1", Billing: provider.BillingInfo{AccountID: "b-1"}})
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if p.Status != provider.PurchaseActive || p.ActivationDate == nil || !p.ActivationDate.Equal(activated) {
		t.Errorf("Purchase() = %+v", p)
	}

	if _, err := c.Purchase(ctx, provider.PurchaseRequest{ReservationID: "r-x"}); !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("unknown reservation error = %v, want ErrNotFound", err)
	}
	if _, err := c.Purchase(ctx, provider.PurchaseRequest{ReservationID: "r-expired"}); !errors.Is(err, provider.ErrNotAvailable) {
		t.Errorf("expired reservation error = %v, want ErrNotAvailable", err)
	}
}

func TestClient_Port(t *testing.T) {
	v := newVendor(t)
	v.handle("POST /v1/ports", func(w http.ResponseWriter, r *http.Request) {
		var body wirePortRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.AccountNumber == "" {
			writeJSON(w, http.StatusOK, wirePortResult{PortingID: "port-2", Status: "rejected", RejectionReason: "missing account"})
			return
		}
		writeJSON(w, http.StatusAccepted, wirePortResult{PortingID: "port-1", Status: "foc_scheduled"})
	})
	c := v.client(t)
	ctx := context.Background()

	r, err := c.Port(ctx, provider.PortRequest{PhoneNumber: "+13125550100", AccountNumber: "A-9", PIN: "1234"})
	if err != nil {
		t.Fatalf("Port() error = %v", err)
	}
	if r.PortingID != "port-1" || r.Status != provider.PortPending || r.PhoneNumber != "+13125550100" {
		t.Errorf("Port() = %+v", r)
	}

	r, err = c.Port(ctx, provider.PortRequest{PhoneNumber: "+13125550100"})
	if err != nil {
		t.Fatalf("Port() error = %v", err)
	}
	if r.Status != provider.PortRejected || r.RejectionReason != "missing account" {
		t.Errorf("Port() = %+v", r)
	}
}

func TestClient_Ping(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	v := newVendor(t)
	v.handle("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	c := v.client(t)

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	healthy.Store(false)
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() error = nil, want failure")
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{ID: "acme", BaseURL: url, APIKey: testKey, APISecret: testSecret})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = c.Ping(context.Background())
	var pe *provider.Error
	if !errors.As(err, &pe) || pe.StatusCode != 0 {
		t.Fatalf("error = %v, want *provider.Error without status", err)
	}
	if !provider.IsFailure(err) {
		t.Error("transport error not classified as failure")
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"10.00", "USD", 1000},
		{"0.005", "USD", 1},
		{"1.994", "eur", 199},
		{"1500", "JPY", 1500},
		{"1.2345", "KWD", 1235},
	}
	for _, tt := range tests {
		got := minorUnits(decimal.RequireFromString(tt.amount), tt.currency)
		if got != tt.want {
			t.Errorf("minorUnits(%s %s) = %d, want %d", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFactory(t *testing.T) {
	r := provider.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	valid := provider.Config{
		ID:          "acme",
		Type:        Type,
		BaseURL:     "https://api.acme.example/v1",
		Credentials: map[string]string{"api_key": "k", "api_secret": "s"},
		Options:     map[string]string{"currency": "EUR", "token_ttl": "30s"},
	}
	a, err := r.Build(valid)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := a.(*Client)
	if c.config.Currency != "EUR" || c.config.TokenTTL != 30*time.Second || c.config.Timeout != provider.DefaultTimeout {
		t.Errorf("config = %+v", c.config)
	}

	tests := []struct {
		name   string
		mutate func(*provider.Config)
	}{
		{"relative url", func(c *provider.Config) { c.BaseURL = "/v1" }},
		{"missing secret", func(c *provider.Config) { c.Credentials = map[string]string{"api_key": "k"} }},
		{"bad token ttl", func(c *provider.Config) { c.Options = map[string]string{"token_ttl": "later"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := r.Build(cfg); !errors.Is(err, provider.ErrInvalidConfig) {
				t.Errorf("Build() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestClient_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var got string
	v := newVendor(t)
	v.handle("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	c := v.client(t)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"; got != want {
		t.Errorf("traceparent = %q, want %q", got, want)
	}
}
