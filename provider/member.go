package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aks-o/voxlink-sub005/health"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/resilience"
)

// member is one configured provider with its own breaker, limits and
// counters. Nothing in a member is shared with another provider.
type member struct {
	config   Config
	adapter  Adapter
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
	mw       *observe.Middleware
	now      func() time.Time

	mu      sync.Mutex
	stats   callStats
	probe   probeState
	started time.Time
}

type callStats struct {
	requests     int64
	successes    int64
	failures     int64
	skipped      int64
	rejected     int64
	totalLatency time.Duration
	lastError    string
	lastErrorAt  time.Time
}

type probeState struct {
	status           health.Status
	checked          bool
	message          string
	lastCheck        time.Time
	lastHealthy      time.Time
	consecutiveFails int
	probes           int64
	healthyProbes    int64
}

func newMember(b Binding, cfg ManagerConfig) *member {
	m := &member{
		config:  b.Config,
		adapter: b.Adapter,
		mw:      cfg.Middleware,
		now:     cfg.Now,
		started: cfg.Now(),
	}

	id := b.Config.ID
	logger := cfg.Logger.With(observe.F("provider", id))

	m.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:         orDefault(b.Config.Breaker.FailureThreshold, DefaultFailureLimit),
		ResetTimeout:        orDefault(b.Config.Breaker.RecoveryTimeout, DefaultRecoveryTimeout),
		HalfOpenMaxRequests: b.Config.Breaker.HalfOpenMaxRequests,
		IsFailure:           IsFailure,
		IsIgnored:           isAbandoned,
		Now:                 cfg.Now,
		OnStateChange: func(from, to resilience.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
	})

	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(m.breaker),
		resilience.WithTimeout(b.Config.timeout()),
	}
	if rl := b.Config.RateLimit; rl.Rate > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        rl.Rate,
			Burst:       rl.Burst,
			WaitOnLimit: rl.MaxWait > 0,
			MaxWait:     rl.MaxWait,
			Now:         cfg.Now,
		})))
	}
	if b.Config.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: b.Config.MaxConcurrent,
		})))
	}
	m.executor = resilience.NewExecutor(opts...)

	return m
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

func (m *member) id() string {
	return m.config.ID
}

// call runs fn through the member's resilience stack and records the outcome.
// A skipped or rejected call never reaches the adapter.
func (m *member) call(ctx context.Context, op string, fn func(context.Context) error) error {
	inner := observe.CallFunc(fn)
	if m.mw != nil {
		inner = m.mw.Wrap(observe.CallMeta{Provider: m.id(), Operation: op}, inner)
	}

	start := m.now()
	err := m.executor.Execute(ctx, inner)
	m.record(err, m.now().Sub(start))

	return wrapError(m.id(), op, err)
}

func (m *member) record(err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		m.stats.skipped++
		return
	case errors.Is(err, resilience.ErrRateLimitExceeded), errors.Is(err, resilience.ErrBulkheadFull):
		m.stats.rejected++
		return
	case errors.Is(err, context.Canceled):
		return
	}

	m.stats.requests++
	m.stats.totalLatency += latency
	if IsFailure(err) {
		m.stats.failures++
		m.stats.lastError = err.Error()
		m.stats.lastErrorAt = m.now()
		return
	}
	m.stats.successes++
}

// ping probes the adapter outside the breaker and rate limiter.
func (m *member) ping(ctx context.Context) error {
	fn := observe.CallFunc(m.adapter.Ping)
	if m.mw != nil {
		fn = m.mw.Wrap(observe.CallMeta{Provider: m.id(), Operation: "ping"}, fn)
	}
	return fn(ctx)
}

func (m *member) recordProbe(result health.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &m.probe
	p.checked = true
	p.status = result.Status
	p.message = result.Message
	if result.Error != nil {
		p.message = result.Error.Error()
	}
	p.lastCheck = m.now()
	p.probes++
	if result.Status == health.StatusUnhealthy {
		p.consecutiveFails++
		return
	}
	p.consecutiveFails = 0
	p.healthyProbes++
	p.lastHealthy = p.lastCheck
}

func (m *member) metrics() ProviderMetrics {
	bm := m.breaker.Metrics()
	limits := m.executor.Limits()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := ProviderMetrics{
		Provider:    m.id(),
		Priority:    m.config.Priority,
		Enabled:     m.config.Enabled,
		Requests:    m.stats.requests,
		Successes:   m.stats.successes,
		Failures:    m.stats.failures,
		Skipped:     m.stats.skipped,
		Rejected:    m.stats.rejected,
		LastError:   m.stats.lastError,
		LastErrorAt: m.stats.lastErrorAt,
		Breaker: BreakerSnapshot{
			State:       bm.State.String(),
			Failures:    bm.Failures,
			LastFailure: bm.LastFailure,
			OpenUntil:   bm.OpenUntil,
		},
	}
	if bh := limits.Bulkhead; bh != nil {
		out.InFlight = bh.Active
		out.MaxConcurrent = bh.MaxConcurrent
	}
	out.RateTokens = limits.Tokens
	if m.stats.requests > 0 {
		out.AverageLatency = m.stats.totalLatency / time.Duration(m.stats.requests)
	}
	return out
}

func (m *member) health() ProviderHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.probe
	out := ProviderHealth{
		Provider:            m.id(),
		Status:              "unknown",
		Message:             p.message,
		LastCheck:           p.lastCheck,
		LastHealthy:         p.lastHealthy,
		ConsecutiveFailures: p.consecutiveFails,
		Uptime:              m.now().Sub(m.started),
	}
	if p.checked {
		out.Status = p.status.String()
		out.Healthy = p.status != health.StatusUnhealthy
	}
	if p.probes > 0 {
		out.Availability = float64(p.healthyProbes) / float64(p.probes) * 100
	}
	return out
}
