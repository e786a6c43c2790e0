package httpvendor

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aks-o/voxlink-sub005/provider"
)

// Type is the registry type name of this adapter.
const Type = "http"

// Config configures a Client.
type Config struct {
	// ID is the provider identifier.
	ID string

	// BaseURL is the vendor API root, e.g. "https://api.vendor.example/v1".
	BaseURL string

	// APIKey identifies the account. It is sent as the token issuer.
	APIKey string

	// APISecret signs bearer tokens.
	APISecret string

	// Timeout bounds a single HTTP exchange.
	// Default: 10s
	Timeout time.Duration

	// TokenTTL is the lifetime of each signed bearer token.
	// Default: 1 minute
	TokenTTL time.Duration

	// Currency is assumed for prices the vendor sends without one.
	// Default: "USD"
	Currency string

	// HTTPClient performs requests.
	// Default: an http.Client with Timeout
	HTTPClient *http.Client

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = provider.DefaultTimeout
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Minute
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", provider.ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s: base_url %q is not an absolute URL", provider.ErrInvalidConfig, c.ID, c.BaseURL)
	}
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("%w: %s: api_key and api_secret are required", provider.ErrInvalidConfig, c.ID)
	}
	return nil
}

// Factory builds a Client from a provider configuration. Credentials
// api_key and api_secret are required; Options["currency"] and
// Options["token_ttl"] are optional.
func Factory(cfg provider.Config) (provider.Adapter, error) {
	c := Config{
		ID:        cfg.ID,
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.Credentials["api_key"],
		APISecret: cfg.Credentials["api_secret"],
		Timeout:   cfg.Timeout,
		Currency:  cfg.Options["currency"],
	}
	if v := cfg.Options["token_ttl"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: token_ttl: %v", provider.ErrInvalidConfig, cfg.ID, err)
		}
		c.TokenTTL = d
	}
	return New(c)
}

// Register adds the HTTP adapter factory to r.
func Register(r *provider.Registry) error {
	return r.Register(Type, Factory)
}
