package provider

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Capability is an operation a provider offers.
type Capability string

// Provider capabilities.
const (
	CapabilitySearch       Capability = "search"
	CapabilityAvailability Capability = "availability"
	CapabilityReserve      Capability = "reserve"
	CapabilityPurchase     Capability = "purchase"
	CapabilityPort         Capability = "port"
)

// Config describes one provider. It is loaded once at startup and treated as
// read-only afterwards.
type Config struct {
	// ID is the unique provider identifier, e.g. "twilio".
	ID string `yaml:"id"`

	// Type selects the adapter factory, e.g. "http" or "static".
	Type string `yaml:"type"`

	// Priority orders providers; lower values are tried first.
	Priority int `yaml:"priority"`

	Enabled bool `yaml:"enabled"`

	// Regions lists ISO 3166 alpha-2 country codes served. Empty means all.
	Regions []string `yaml:"regions"`

	// Capabilities lists the operations offered. Empty means all.
	Capabilities []Capability `yaml:"capabilities"`

	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single call to this provider.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Credentials are adapter-specific secrets such as api_key and api_secret.
	// Values may carry ${ENV} and secretref: references until resolved.
	Credentials map[string]string `yaml:"credentials"`

	// Options are adapter-specific settings.
	Options map[string]string `yaml:"options"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// MaxConcurrent caps in-flight calls. Zero disables the bulkhead.
	MaxConcurrent int `yaml:"max_concurrent"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// RateLimitConfig is a provider's request budget. A zero Rate disables it.
type RateLimitConfig struct {
	Rate    float64       `yaml:"rate"` // requests per second
	Burst   int           `yaml:"burst"`
	MaxWait time.Duration `yaml:"max_wait"` // zero fails fast when the budget is spent
}

// BreakerConfig tunes a provider's circuit breaker.
type BreakerConfig struct {
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// Default: 60s
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`

	// Default: 1
	HalfOpenMaxRequests int `yaml:"half_open_max_requests"`
}

// Default timing values.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultRecoveryTimeout = 60 * time.Second
	DefaultFailureLimit    = 5
)

// Validate checks the fields every adapter relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Type) == "" {
		return fmt.Errorf("%w: %s: type is required", ErrInvalidConfig, c.ID)
	}
	if c.Timeout < 0 || c.Breaker.RecoveryTimeout < 0 {
		return fmt.Errorf("%w: %s: durations must not be negative", ErrInvalidConfig, c.ID)
	}
	if c.RateLimit.Rate < 0 || c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: %s: limits must not be negative", ErrInvalidConfig, c.ID)
	}
	for _, r := range c.Regions {
		if len(r) != 2 {
			return fmt.Errorf("%w: %s: region %q is not a 2-letter country code", ErrInvalidConfig, c.ID, r)
		}
	}
	return nil
}

// Supports reports whether the provider serves country for capability. An
// empty country matches any provider.
func (c Config) Supports(country string, capability Capability) bool {
	if len(c.Capabilities) > 0 && !slices.Contains(c.Capabilities, capability) {
		return false
	}
	if country == "" || len(c.Regions) == 0 {
		return true
	}
	return slices.ContainsFunc(c.Regions, func(r string) bool {
		return strings.EqualFold(r, country)
	})
}

// SupportsAny reports whether the provider serves any of countries for
// capability. An empty list matches any provider.
func (c Config) SupportsAny(countries []string, capability Capability) bool {
	if len(countries) == 0 {
		return c.Supports("", capability)
	}
	return slices.ContainsFunc(countries, func(cc string) bool {
		return c.Supports(cc, capability)
	})
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
