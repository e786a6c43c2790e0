package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func request(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/providers", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func newKeyAuth(t *testing.T) *APIKeyAuthenticator {
	t.Helper()
	store, err := NewMemoryKeyStore(
		APIKey{ID: "ops", Hash: HashAPIKey("ops-key"), Principal: "ops@example.com", Roles: []string{RoleAdmin}},
		APIKey{ID: "dash", Hash: HashAPIKey("dash-key"), Principal: "dashboard", Roles: []string{RoleViewer}},
		APIKey{ID: "old", Hash: HashAPIKey("old-key"), Principal: "old", Roles: []string{RoleAdmin}, ExpiresAt: testNow.Add(-time.Hour)},
	)
	if err != nil {
		t.Fatalf("NewMemoryKeyStore() error = %v", err)
	}
	return NewAPIKeyAuthenticator(APIKeyConfig{Now: func() time.Time { return testNow }}, store)
}

func TestMemoryKeyStore_RejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		key  APIKey
	}{
		{"missing id", APIKey{Hash: HashAPIKey("k")}},
		{"plain key instead of hash", APIKey{ID: "x", Hash: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMemoryKeyStore(tt.key); err == nil {
				t.Error("NewMemoryKeyStore() error = nil, want error")
			}
		})
	}
}

func TestMemoryKeyStore_NormalizesHash(t *testing.T) {
	upper := APIKey{ID: "x", Hash: " " + strings.ToUpper(HashAPIKey("k")) + " "}
	s, err := NewMemoryKeyStore(upper)
	if err != nil {
		t.Fatalf("NewMemoryKeyStore() error = %v", err)
	}
	k, _ := s.Lookup(context.Background(), HashAPIKey("k"))
	if k == nil || k.ID != "x" {
		t.Errorf("Lookup() = %+v, want key x", k)
	}
}

func TestAPIKeyAuthenticator_Authenticate(t *testing.T) {
	a := newKeyAuth(t)

	tests := []struct {
		name          string
		key           string
		wantErr       error
		wantPrincipal string
	}{
		{"valid admin key", "ops-key", nil, "ops@example.com"},
		{"valid key with whitespace", "  dash-key ", nil, "dashboard"},
		{"unknown key", "nope", ErrInvalidCredentials, ""},
		{"expired key", "old-key", ErrTokenExpired, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := a.Authenticate(context.Background(), request(map[string]string{"X-API-Key": tt.key}))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if id.Principal != tt.wantPrincipal || id.Method != MethodAPIKey {
				t.Errorf("identity = %+v, want principal %s via api_key", id, tt.wantPrincipal)
			}
		})
	}
}

func TestJWTAuthenticator(t *testing.T) {
	now := testNow
	a, err := NewJWTAuthenticator(JWTConfig{
		Secret:   []byte("s3cret"),
		Issuer:   "voxlink",
		Audience: "voxlinkd",
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}

	token, err := a.Issue("alice", []string{RoleViewer}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	id, err := a.Authenticate(context.Background(), request(map[string]string{"Authorization": "Bearer " + token}))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Principal != "alice" || !id.HasRole(RoleViewer) || id.HasRole(RoleAdmin) {
		t.Errorf("identity = %+v, want alice with viewer only", id)
	}

	other, _ := NewJWTAuthenticator(JWTConfig{Secret: []byte("other"), Issuer: "voxlink", Audience: "voxlinkd", Now: func() time.Time { return now }})
	forged, _ := other.Issue("mallory", []string{RoleAdmin}, time.Hour)
	wrongAud, _ := NewJWTAuthenticator(JWTConfig{Secret: []byte("s3cret"), Issuer: "voxlink", Audience: "elsewhere", Now: func() time.Time { return now }})
	elsewhere, _ := wrongAud.Issue("bob", nil, time.Hour)

	tests := []struct {
		name    string
		header  string
		advance time.Duration
		wantErr error
	}{
		{"wrong signing key", "Bearer " + forged, 0, ErrInvalidCredentials},
		{"wrong audience", "Bearer " + elsewhere, 0, ErrInvalidCredentials},
		{"garbage", "Bearer not-a-token", 0, ErrTokenMalformed},
		{"empty bearer", "Bearer ", 0, ErrMissingCredentials},
		{"expired", "Bearer " + token, 2 * time.Hour, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = testNow.Add(tt.advance)
			defer func() { now = testNow }()
			_, err := a.Authenticate(context.Background(), request(map[string]string{"Authorization": tt.header}))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewJWTAuthenticator_RequiresSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{}); err == nil {
		t.Error("NewJWTAuthenticator() error = nil, want error")
	}
}

func TestChain(t *testing.T) {
	keys := newKeyAuth(t)
	jwtAuth, _ := NewJWTAuthenticator(JWTConfig{Secret: []byte("s3cret"), Now: func() time.Time { return testNow }})
	chain := Chain{keys, jwtAuth}
	token, _ := jwtAuth.Issue("alice", nil, time.Hour)

	if chain.Supports(request(nil)) {
		t.Error("Supports(no credentials) = true, want false")
	}
	if _, err := chain.Authenticate(context.Background(), request(nil)); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Authenticate(no credentials) error = %v, want ErrMissingCredentials", err)
	}

	id, err := chain.Authenticate(context.Background(), request(map[string]string{"Authorization": "bearer " + token}))
	if err != nil || id.Method != MethodJWT {
		t.Errorf("Authenticate(token) = %+v, %v, want jwt identity", id, err)
	}
	id, err = chain.Authenticate(context.Background(), request(map[string]string{"X-API-Key": "ops-key"}))
	if err != nil || id.Method != MethodAPIKey {
		t.Errorf("Authenticate(key) = %+v, %v, want api_key identity", id, err)
	}
}

func TestIdentity_Roles(t *testing.T) {
	admin := &Identity{Roles: []string{RoleAdmin}}
	viewer := &Identity{Roles: []string{RoleViewer}}
	var none *Identity

	if !admin.HasRole(RoleViewer) {
		t.Error("admin.HasRole(viewer) = false, want true")
	}
	if viewer.HasRole(RoleAdmin) {
		t.Error("viewer.HasRole(admin) = true, want false")
	}
	if !viewer.HasAnyRole() {
		t.Error("viewer.HasAnyRole() = false, want true")
	}
	if none.HasAnyRole() {
		t.Error("nil.HasAnyRole() = true, want false")
	}
}

type erroringStore struct{}

func (erroringStore) Lookup(context.Context, string) (*APIKey, error) {
	return nil, errors.New("store down")
}

func TestRequire(t *testing.T) {
	keys := newKeyAuth(t)
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		authn    Authenticator
		headers  map[string]string
		wantCode int
		wantSeen string
	}{
		{"no credentials", keys, nil, http.StatusUnauthorized, ""},
		{"bad key", keys, map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, ""},
		{"viewer forbidden", keys, map[string]string{"X-API-Key": "dash-key"}, http.StatusForbidden, ""},
		{"admin allowed", keys, map[string]string{"X-API-Key": "ops-key"}, http.StatusNoContent, "ops@example.com"},
		{"store failure", NewAPIKeyAuthenticator(APIKeyConfig{}, erroringStore{}), map[string]string{"X-API-Key": "k"}, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			h := Require(tt.authn, nil, RoleAdmin)(next)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request(tt.headers))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if seen != tt.wantSeen {
				t.Errorf("principal = %q, want %q", seen, tt.wantSeen)
			}
		})
	}
}
