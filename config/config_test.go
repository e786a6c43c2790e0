package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/secret"
)

const sample = `
service:
  name: voxlinkd
  listen: ":9090"
observe:
  logging:
    enabled: true
    level: info
cache:
  search_ttl: 2m
  compression: zstd
search:
  max_limit: 50
  retry:
    max_attempts: 4
    base_delay: 500ms
providers:
  - id: acme
    type: http
    priority: 1
    enabled: true
    regions: [US, CA]
    base_url: https://api.acme.test/v1
    timeout: 5s
    credentials:
      api_key: ${ACME_KEY}
      api_secret: secretref:file:acme_secret
    rate_limit:
      rate: 20
      burst: 5
    breaker:
      failure_threshold: 3
      recovery_timeout: 30s
  - id: demo
    type: static
    priority: 2
    enabled: true
auth:
  api_keys:
    - id: ops
      hash: 3f0a9a5d0a1c6e4cb8e1d0c6b2b0f34c6c0f2a6f0e5f9e5d5c1c7a3d2b1e0f9a
      principal: ops@example.com
      roles: [admin]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "voxlink.yaml", sample)
	writeFile(t, dir, "acme_secret", "shh")
	t.Setenv("ACME_KEY", "key-123")

	resolver := secret.NewResolver(true, secret.EnvProvider{}, secret.NewFileProvider(dir))
	cfg, err := Load(context.Background(), path, resolver)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Service.Listen)
	}
	if cfg.Observe.ServiceName != "voxlinkd" {
		t.Errorf("Observe.ServiceName = %q, want voxlinkd", cfg.Observe.ServiceName)
	}
	if cfg.Cache.SearchTTL != 2*time.Minute || cfg.Cache.Compression != "zstd" {
		t.Errorf("Cache = %+v, want 2m zstd", cfg.Cache)
	}
	if cfg.Search.Retry.BaseDelay != 500*time.Millisecond || cfg.Search.Retry.MaxAttempts != 4 {
		t.Errorf("Search.Retry = %+v, want 4 attempts from 500ms", cfg.Search.Retry)
	}

	acme := cfg.Providers[0]
	if acme.Credentials["api_key"] != "key-123" || acme.Credentials["api_secret"] != "shh" {
		t.Errorf("credentials = %v, want resolved values", acme.Credentials)
	}
	if acme.Breaker.FailureThreshold != 3 || acme.Breaker.RecoveryTimeout != 30*time.Second {
		t.Errorf("breaker = %+v, want 3 failures / 30s", acme.Breaker)
	}
	if acme.RateLimit.Rate != 20 || acme.Timeout != 5*time.Second {
		t.Errorf("acme = %+v, want rate 20 and timeout 5s", acme)
	}
	if !cfg.Auth.Enabled() || cfg.Auth.APIKeys[0].Principal != "ops@example.com" {
		t.Errorf("Auth = %+v, want the ops key", cfg.Auth)
	}
}

func TestLoad_MissingEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "voxlink.yaml", sample)
	writeFile(t, dir, "acme_secret", "shh")

	resolver := secret.NewResolver(true, secret.NewFileProvider(dir))
	_, err := Load(context.Background(), path, resolver)
	if !errors.Is(err, secret.ErrMissingEnv) {
		t.Errorf("Load() error = %v, want secret.ErrMissingEnv", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestParse_UnknownField(t *testing.T) {
	if _, err := Parse([]byte("service:\n  lisen: \":80\"\n")); err == nil {
		t.Error("Parse() error = nil, want unknown field error")
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil || cfg == nil {
		t.Fatalf("Parse(nil) = %v, %v, want empty config", cfg, err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvListen:        ":7000",
		EnvLogLevel:      "debug",
		EnvDatabaseDSN:   "postgres://localhost/voxlink",
		EnvSearchTTL:     "90s",
		EnvDetailTTL:     "not-a-duration",
		EnvMaxLimit:      "40",
		EnvProbeInterval: "30s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{Service: ServiceConfig{Listen: ":9090"}}
	cfg.ApplyEnv(lookup)

	if cfg.Service.Listen != ":9090" {
		t.Errorf("Listen = %q, want file value :9090", cfg.Service.Listen)
	}
	if !cfg.Observe.Logging.Enabled || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("Logging = %+v, want enabled debug", cfg.Observe.Logging)
	}
	if cfg.Database.DSN != "postgres://localhost/voxlink" {
		t.Errorf("DSN = %q, want env value", cfg.Database.DSN)
	}
	if cfg.Cache.SearchTTL != 90*time.Second {
		t.Errorf("SearchTTL = %v, want 90s", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.DetailTTL != 0 {
		t.Errorf("DetailTTL = %v, want 0 for a malformed value", cfg.Cache.DetailTTL)
	}
	if cfg.Search.MaxLimit != 40 {
		t.Errorf("MaxLimit = %d, want 40", cfg.Search.MaxLimit)
	}
	if cfg.Health.ProbeInterval != 30*time.Second {
		t.Errorf("ProbeInterval = %v, want 30s", cfg.Health.ProbeInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse([]byte(`
providers:
  - id: demo
    type: static
    enabled: true
`))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no providers", func(c *Config) { c.Providers = nil }, true},
		{"duplicate provider", func(c *Config) { c.Providers = append(c.Providers, c.Providers[0]) }, true},
		{"provider without type", func(c *Config) { c.Providers[0].Type = "" }, true},
		{"unknown compression", func(c *Config) { c.Cache.Compression = "gzip" }, true},
		{"negative ttl", func(c *Config) { c.Cache.DetailTTL = -time.Second }, true},
		{"negative max ttl", func(c *Config) { c.Cache.MaxTTL = -time.Second }, true},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 60; c.Search.MaxLimit = 50 }, true},
		{"jitter above one", func(c *Config) { c.Search.Retry.Jitter = 1.5 }, true},
		{"bad log level", func(c *Config) { c.Observe.Logging = observeLogging("loud") }, true},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 5; c.Database.MaxConns = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Service.Name != "voxlinkd" || cfg.Service.Listen != ":8080" || cfg.Service.ShutdownTimeout != 15*time.Second {
		t.Errorf("Service = %+v, want defaults", cfg.Service)
	}
	if cfg.Cache.Compression != "none" {
		t.Errorf("Compression = %q, want none", cfg.Cache.Compression)
	}
}

func observeLogging(level string) observe.LoggingConfig {
	return observe.LoggingConfig{Enabled: true, Level: level}
}
