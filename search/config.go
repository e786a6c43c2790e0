package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/aks-o/voxlink-sub005/cache"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/store"
)

// RetryConfig bounds the retry loop around provider searches.
type RetryConfig struct {
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the wait after the first failed attempt; it doubles per attempt.
	// Default: 1s
	BaseDelay time.Duration `yaml:"base_delay"`

	// Default: 10s
	MaxDelay time.Duration `yaml:"max_delay"`

	// Jitter is the largest random fraction of the delay added to it. A
	// negative value disables jitter.
	// Default: 0.1
	Jitter float64 `yaml:"jitter"`
}

// Config configures an Orchestrator.
type Config struct {
	// DefaultLimit applies when criteria set no limit.
	// Default: 20
	DefaultLimit int

	// MaxLimit caps any requested limit.
	// Default: 100
	MaxLimit int

	// SearchTTL is how long search results are cached.
	// Default: 5 minutes
	SearchTTL time.Duration

	// DetailTTL is how long single-number details are cached.
	// Default: 15 minutes
	DetailTTL time.Duration

	// MaxTTL caps SearchTTL and DetailTTL.
	// Default: 1 hour
	MaxTTL time.Duration

	Retry RetryConfig

	// BulkConcurrency caps availability checks in flight during a bulk check.
	// Default: 10
	BulkConcurrency int

	// Codec serializes cached values.
	// Default: cache.JSONCodec
	Codec cache.Codec

	// Keyer derives cache keys.
	// Default: cache.DefaultKeyer
	Keyer cache.Keyer

	// Repository records reservations, purchases and ports. Nil disables it.
	Repository store.Repository

	// Logger receives degraded-path events.
	// Default: observe.NopLogger()
	Logger observe.Logger

	// Tracer creates orchestrator spans.
	// Default: a no-op tracer
	Tracer trace.Tracer

	// Metrics records cache hit rates.
	// Default: observe.NopMetrics()
	Metrics observe.Metrics

	// Sleep waits between retry attempts.
	// Default: a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error

	// Rand returns a pseudo-random float in [0, 1) for jitter.
	// Default: math/rand/v2
	Rand func() float64

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 20
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	searches, details := cache.SearchPolicy(), cache.DetailPolicy()
	if c.MaxTTL > 0 {
		searches.MaxTTL, details.MaxTTL = c.MaxTTL, c.MaxTTL
	}
	c.SearchTTL = searches.EffectiveTTL(c.SearchTTL)
	c.DetailTTL = details.EffectiveTTL(c.DetailTTL)
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = time.Second
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = 0.1
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = 10
	}
	if c.Codec == nil {
		c.Codec = cache.JSONCodec{}
	}
	if c.Keyer == nil {
		c.Keyer = cache.NewDefaultKeyer()
	}
	if c.Logger == nil {
		c.Logger = observe.NopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = observe.NopMetrics()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
