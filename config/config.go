// Package config loads voxlinkd's configuration: a YAML file, overlaid by
// VOXLINK_* environment variables, with secret references resolved before
// validation.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aks-o/voxlink-sub005/auth"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/provider"
	"github.com/aks-o/voxlink-sub005/secret"
)

// ErrInvalid indicates a configuration that cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete voxlinkd configuration.
type Config struct {
	Service   ServiceConfig     `yaml:"service"`
	Observe   observe.Config    `yaml:"observe"`
	Cache     CacheConfig       `yaml:"cache"`
	Search    SearchConfig      `yaml:"search"`
	Health    HealthConfig      `yaml:"health"`
	Providers []provider.Config `yaml:"providers"`
	Database  DatabaseConfig    `yaml:"database"`
	Auth      AuthConfig        `yaml:"auth"`
}

// ServiceConfig configures the HTTP listener.
type ServiceConfig struct {
	// Default: "voxlinkd"
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Default: ":8080"
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures result caching. Zero TTLs select the package
// defaults.
type CacheConfig struct {
	SearchTTL time.Duration `yaml:"search_ttl"`
	DetailTTL time.Duration `yaml:"detail_ttl"`

	// MaxTTL caps both TTLs.
	// Default: 1h
	MaxTTL time.Duration `yaml:"max_ttl"`

	// Compression is "none" or "zstd".
	// Default: "none"
	Compression string `yaml:"compression"`
}

// SearchConfig configures the search orchestrator. Zero values select the
// package defaults.
type SearchConfig struct {
	DefaultLimit    int         `yaml:"default_limit"`
	MaxLimit        int         `yaml:"max_limit"`
	BulkConcurrency int         `yaml:"bulk_concurrency"`
	Retry           RetryConfig `yaml:"retry"`
}

// RetryConfig mirrors search.RetryConfig.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"`
}

// HealthConfig configures background provider probing.
type HealthConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// DatabaseConfig enables the PostgreSQL repository when DSN is set.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`

	// Migrate creates the schema at startup.
	Migrate bool `yaml:"migrate"`
}

// AuthConfig configures operator authentication for the admin endpoints.
// With no keys and no JWT secret the admin endpoints are served without
// authentication and a warning is logged at startup.
type AuthConfig struct {
	APIKeys     []auth.APIKey `yaml:"api_keys"`
	JWTSecret   string        `yaml:"jwt_secret"`
	JWTIssuer   string        `yaml:"jwt_issuer"`
	JWTAudience string        `yaml:"jwt_audience"`
}

// Enabled reports whether any operator credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

// Load reads path, applies the environment overlay and defaults, resolves
// secrets and validates the result.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.ApplyDefaults()
	if err := cfg.Resolve(ctx, resolver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills service-level defaults.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "voxlinkd"
	}
	if c.Service.Listen == "" {
		c.Service.Listen = ":8080"
	}
	if c.Service.ShutdownTimeout <= 0 {
		c.Service.ShutdownTimeout = 15 * time.Second
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = c.Service.Name
	}
	if c.Observe.Version == "" {
		c.Observe.Version = c.Service.Version
	}
	if c.Cache.Compression == "" {
		c.Cache.Compression = "none"
	}
}

// Resolve expands ${ENV} references and secretref: values in provider
// credentials and base URLs, the database DSN and the JWT secret.
func (c *Config) Resolve(ctx context.Context, resolver *secret.Resolver) error {
	for i := range c.Providers {
		p := &c.Providers[i]
		creds, err := resolver.ResolveMap(ctx, p.Credentials)
		if err != nil {
			return fmt.Errorf("config: provider %s credentials: %w", p.ID, err)
		}
		p.Credentials = creds
		if p.BaseURL, err = resolver.ResolveValue(ctx, p.BaseURL); err != nil {
			return fmt.Errorf("config: provider %s base_url: %w", p.ID, err)
		}
	}

	var err error
	if c.Database.DSN, err = resolver.ResolveValue(ctx, c.Database.DSN); err != nil {
		return fmt.Errorf("config: database dsn: %w", err)
	}
	if c.Auth.JWTSecret, err = resolver.ResolveValue(ctx, c.Auth.JWTSecret); err != nil {
		return fmt.Errorf("config: auth jwt_secret: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: at least one provider is required", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate provider id %q", ErrInvalid, p.ID)
		}
		seen[p.ID] = true
	}

	if !slices.Contains([]string{"none", "zstd"}, c.Cache.Compression) {
		return fmt.Errorf("%w: unknown cache compression %q", ErrInvalid, c.Cache.Compression)
	}
	if c.Cache.SearchTTL < 0 || c.Cache.DetailTTL < 0 || c.Cache.MaxTTL < 0 {
		return fmt.Errorf("%w: cache TTLs must not be negative", ErrInvalid)
	}

	s := c.Search
	if s.DefaultLimit < 0 || s.MaxLimit < 0 || s.BulkConcurrency < 0 || s.Retry.MaxAttempts < 0 {
		return fmt.Errorf("%w: search limits must not be negative", ErrInvalid)
	}
	if s.MaxLimit > 0 && s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("%w: search default_limit %d exceeds max_limit %d", ErrInvalid, s.DefaultLimit, s.MaxLimit)
	}
	if s.Retry.Jitter > 1 {
		return fmt.Errorf("%w: search retry jitter must be at most 1", ErrInvalid)
	}

	if c.Database.MinConns > c.Database.MaxConns && c.Database.MaxConns > 0 {
		return fmt.Errorf("%w: database min_conns exceeds max_conns", ErrInvalid)
	}
	return nil
}
