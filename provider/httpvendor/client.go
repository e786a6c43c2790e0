package httpvendor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/aks-o/voxlink-sub005/provider"
)

// maxErrorBody caps how much of an error response is read into the error.
const maxErrorBody = 4 << 10

// Client speaks the vendor numbering API.
//
// Contract:
//   - Concurrency: safe for concurrent use; the only shared state is the
//     underlying http.Client.
//   - Errors: vendor and transport faults are returned as *provider.Error
//     carrying the HTTP status.
type Client struct {
	config Config
	base   *url.URL
}

var _ provider.Adapter = (*Client)(nil)

// New creates a Client.
func New(config Config) (*Client, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	return &Client{config: config, base: base}, nil
}

// ID returns the provider identifier.
func (c *Client) ID() string {
	return c.config.ID
}

// token signs a bearer token for one request.
func (c *Client) token() (string, error) {
	now := c.config.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.config.APIKey,
		Audience:  jwt.ClaimStrings{c.base.Host},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TokenTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.config.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// do performs one exchange. A 2xx response is decoded into out when out is
// non-nil. Any other status is returned as *provider.Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.RawPath = u.EscapedPath() + path
	decoded, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return c.fail(op, 0, err)
	}
	u.Path = decoded
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return c.fail(op, 0, err)
	}
	token, err := c.token()
	if err != nil {
		return c.fail(op, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return c.fail(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(op, resp.StatusCode, readError(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(op, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(op string, status int, err error) *provider.Error {
	return &provider.Error{Provider: c.config.ID, Op: op, StatusCode: status, Err: err}
}

func readError(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var we wireError
	if json.Unmarshal(data, &we) == nil && we.Message != "" {
		if we.Code != "" {
			return fmt.Errorf("%s: %s", we.Code, we.Message)
		}
		return errors.New(we.Message)
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func statusOf(err error) int {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

// SearchNumbers calls GET /numbers/search.
func (c *Client) SearchNumbers(ctx context.Context, req provider.SearchRequest) (*provider.SearchResponse, error) {
	q := url.Values{}
	q.Set("country", strings.ToUpper(req.CountryCode))
	setIf(q, "area_code", req.AreaCode)
	setIf(q, "locality", req.City)
	setIf(q, "region", req.Region)
	setIf(q, "contains", req.Pattern)
	if len(req.Features) > 0 {
		features := make([]string, len(req.Features))
		for i, f := range req.Features {
			features[i] = string(f)
		}
		q.Set("capabilities", strings.Join(features, ","))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	var wire wireSearchResponse
	if err := c.do(ctx, "search", http.MethodGet, "/numbers/search", q, nil, &wire); err != nil {
		return nil, err
	}

	resp := &provider.SearchResponse{
		Numbers:    make([]provider.AvailableNumber, 0, len(wire.Numbers)),
		TotalCount: wire.TotalCount,
		SearchID:   wire.SearchID,
		Provider:   c.config.ID,
	}
	for _, n := range wire.Numbers {
		resp.Numbers = append(resp.Numbers, n.canonical(c.config.ID, c.config.Currency))
	}
	if resp.SearchID == "" {
		resp.SearchID = uuid.NewString()
	}
	if resp.TotalCount < len(resp.Numbers) {
		resp.TotalCount = len(resp.Numbers)
	}
	return resp, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// CheckAvailability calls GET /numbers/{number}/availability. A 404 or 410
// means the vendor does not offer the number.
func (c *Client) CheckAvailability(ctx context.Context, phoneNumber string) (bool, error) {
	var wire wireAvailability
	path := "/numbers/" + url.PathEscape(phoneNumber) + "/availability"
	err := c.do(ctx, "availability", http.MethodGet, path, nil, nil, &wire)
	switch status := statusOf(err); {
	case err == nil:
		return wire.Available, nil
	case status == http.StatusNotFound, status == http.StatusGone:
		return false, nil
	default:
		return false, err
	}
}

// Reserve calls POST /reservations. A 409 means the number was taken.
func (c *Client) Reserve(ctx context.Context, req provider.ReserveRequest) (*provider.Reservation, error) {
	body := wireReserveRequest{
		PhoneNumber:     req.PhoneNumber,
		DurationMinutes: int(req.Duration.Minutes()),
		Customer:        toWireCustomer(req.Customer),
	}

	var wire wireReservation
	err := c.do(ctx, "reserve", http.MethodPost, "/reservations", nil, body, &wire)
	if statusOf(err) == http.StatusConflict {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotAvailable, req.PhoneNumber)
	}
	if err != nil {
		return nil, err
	}

	phone := wire.PhoneNumber
	if phone == "" {
		phone = req.PhoneNumber
	}
	return &provider.Reservation{
		ReservationID: wire.ReservationID,
		PhoneNumber:   phone,
		Provider:      c.config.ID,
		ExpiresAt:     wire.ExpiresAt,
	}, nil
}

// Purchase calls POST /purchases. A 404 means the reservation is unknown
// and a 409 that it lapsed.
func (c *Client) Purchase(ctx context.Context, req provider.PurchaseRequest) (*provider.Purchase, error) {
	body := wirePurchaseRequest{
		ReservationID:   req.ReservationID,
		Customer:        toWireCustomer(req.Customer),
		BillingAccount:  req.Billing.AccountID,
		PaymentMethodID: req.Billing.PaymentMethodID,
		AutoRenew:       req.Billing.AutoRenew,
	}

	var wire wirePurchase
	err := c.do(ctx, "purchase", http.MethodPost, "/purchases", nil, body, &wire)
	switch statusOf(err) {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: reservation %s", provider.ErrNotFound, req.ReservationID)
	case http.StatusConflict, http.StatusGone:
		return nil, fmt.Errorf("%w: reservation %s", provider.ErrNotAvailable, req.ReservationID)
	}
	if err != nil {
		return nil, err
	}

	phone := wire.PhoneNumber
	if phone == "" {
		phone = req.PhoneNumber
	}
	return &provider.Purchase{
		PurchaseID:     wire.PurchaseID,
		PhoneNumber:    phone,
		Provider:       c.config.ID,
		Status:         purchaseStatus(wire.Status),
		ActivationDate: wire.ActivationDate,
	}, nil
}

// Port calls POST /ports.
func (c *Client) Port(ctx context.Context, req provider.PortRequest) (*provider.PortResult, error) {
	body := wirePortRequest{
		PhoneNumber:    req.PhoneNumber,
		CurrentCarrier: req.CurrentCarrier,
		AccountNumber:  req.AccountNumber,
		PIN:            req.PIN,
		AuthorizedName: req.AuthorizedName,
		Customer:       toWireCustomer(req.Customer),
		RequestedDate:  req.RequestedDate,
	}

	var wire wirePortResult
	if err := c.do(ctx, "port", http.MethodPost, "/ports", nil, body, &wire); err != nil {
		return nil, err
	}
	return &provider.PortResult{
		PortingID:           wire.PortingID,
		PhoneNumber:         req.PhoneNumber,
		Provider:            c.config.ID,
		Status:              portStatus(wire.Status),
		EstimatedCompletion: wire.EstimatedCompletion,
		RejectionReason:     wire.RejectionReason,
	}, nil
}

// Ping calls GET /health.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/health", nil, nil, nil)
}
