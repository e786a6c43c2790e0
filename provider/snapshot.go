package provider

import "time"

// ProviderMetrics is a point-in-time view of one provider's call counters.
type ProviderMetrics struct {
	Provider string `json:"provider"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`

	// Requests counts calls that reached the adapter.
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`

	// Skipped counts calls refused by an open breaker.
	Skipped int64 `json:"skipped"`

	// Rejected counts calls refused by the rate limiter or bulkhead.
	Rejected int64 `json:"rejected"`

	// InFlight and MaxConcurrent are zero when no bulkhead is configured.
	InFlight      int `json:"in_flight"`
	MaxConcurrent int `json:"max_concurrent,omitempty"`

	// RateTokens is the remaining request budget, nil without a rate limit.
	RateTokens *float64 `json:"rate_tokens,omitempty"`

	AverageLatency time.Duration   `json:"average_latency"`
	LastError      string          `json:"last_error,omitempty"`
	LastErrorAt    time.Time       `json:"last_error_at,omitempty"`
	Breaker        BreakerSnapshot `json:"breaker"`
}

// BreakerSnapshot is a point-in-time view of a provider's circuit breaker.
type BreakerSnapshot struct {
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	OpenUntil   time.Time `json:"open_until,omitempty"`
}

// ProviderHealth is the latest background probe outcome for one provider.
type ProviderHealth struct {
	Provider string `json:"provider"`

	// Healthy is false only after a failed probe.
	Healthy bool `json:"healthy"`

	// Status is healthy, degraded, unhealthy, or unknown before the first probe.
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	LastCheck           time.Time `json:"last_check,omitempty"`
	LastHealthy         time.Time `json:"last_healthy,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`

	// Uptime is the time since the manager started tracking the provider.
	Uptime time.Duration `json:"uptime"`

	// Availability is the percentage of probes that succeeded.
	Availability float64 `json:"availability"`
}
