package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// APIKey is a registered operator key. Only the SHA-256 hash of the key is
// kept.
type APIKey struct {
	ID        string    `yaml:"id"`
	Hash      string    `yaml:"hash"` // hex SHA-256 of the key
	Principal string    `yaml:"principal"`
	Roles     []string  `yaml:"roles"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// HashAPIKey returns the hex SHA-256 of key, the form stored in APIKey.Hash.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyStore looks up API keys by hash.
type KeyStore interface {
	// Lookup returns the key with hash, or nil when none exists.
	Lookup(ctx context.Context, hash string) (*APIKey, error)
}

// MemoryKeyStore is an in-process KeyStore.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]APIKey
}

// NewMemoryKeyStore creates a store holding keys. Keys without an ID or a
// hash are rejected.
func NewMemoryKeyStore(keys ...APIKey) (*MemoryKeyStore, error) {
	s := &MemoryKeyStore{keys: make(map[string]APIKey, len(keys))}
	for _, k := range keys {
		if err := s.Add(k); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers k, replacing any key with the same hash.
func (s *MemoryKeyStore) Add(k APIKey) error {
	k.Hash = strings.ToLower(strings.TrimSpace(k.Hash))
	if k.ID == "" || len(k.Hash) != sha256.Size*2 {
		return fmt.Errorf("%w: api key %q needs an id and a sha256 hash", ErrInvalidCredentials, k.ID)
	}
	s.mu.Lock()
	s.keys[k.Hash] = k
	s.mu.Unlock()
	return nil
}

// Lookup returns the key with hash.
func (s *MemoryKeyStore) Lookup(_ context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[hash]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

// Len returns the number of registered keys.
func (s *MemoryKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// APIKeyConfig configures an APIKeyAuthenticator.
type APIKeyConfig struct {
	// HeaderName is the header carrying the key.
	// Default: "X-API-Key"
	HeaderName string

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// APIKeyAuthenticator validates operator API keys.
type APIKeyAuthenticator struct {
	config APIKeyConfig
	store  KeyStore
}

// NewAPIKeyAuthenticator creates an authenticator over store.
func NewAPIKeyAuthenticator(config APIKeyConfig, store KeyStore) *APIKeyAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &APIKeyAuthenticator{config: config, store: store}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return string(MethodAPIKey)
}

// Supports reports whether r carries the key header.
func (a *APIKeyAuthenticator) Supports(r *http.Request) bool {
	return r.Header.Get(a.config.HeaderName) != ""
}

// Authenticate validates the key in r.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	key := strings.TrimSpace(r.Header.Get(a.config.HeaderName))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("auth: key lookup: %w", err)
	}
	if info == nil {
		return nil, ErrInvalidCredentials
	}
	if !info.ExpiresAt.IsZero() && !a.config.Now().Before(info.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    MethodAPIKey,
		KeyID:     info.ID,
		ExpiresAt: info.ExpiresAt,
	}, nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ KeyStore      = (*MemoryKeyStore)(nil)
)
