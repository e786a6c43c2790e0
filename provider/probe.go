package provider

import (
	"context"
	"errors"
	"time"

	"github.com/aks-o/voxlink-sub005/health"
	"github.com/aks-o/voxlink-sub005/observe"
	"github.com/aks-o/voxlink-sub005/resilience"
)

// ProbeOnce pings every enabled provider concurrently and records the
// outcome. Probes bypass the circuit breaker and never change its state.
func (m *Manager) ProbeOnce(ctx context.Context) map[string]health.Result {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: m.config.ProbeTimeout})
	for _, mem := range m.members {
		if !mem.config.Enabled {
			continue
		}
		agg.Register(mem.id(), health.NewPingChecker(mem.id(), mem.ping))
	}

	results := agg.CheckAll(ctx)
	for id, result := range results {
		mem := m.byID[id]
		mem.recordProbe(result)
		if result.Status == health.StatusUnhealthy {
			m.logger.Warn(ctx, "provider health probe failed",
				observe.F("provider", id),
				observe.Err(result.Error),
			)
		}
	}
	return results
}

// StartHealthProbe probes immediately and then every ProbeInterval until ctx
// is done or Stop is called. Calling it while a probe loop runs is a no-op.
func (m *Manager) StartHealthProbe(ctx context.Context) {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.ProbeInterval)
		defer ticker.Stop()

		m.ProbeOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ProbeOnce(ctx)
			}
		}
	}()

	m.logger.Info(ctx, "provider health probe started",
		observe.F("interval", m.config.ProbeInterval.String()),
		observe.F("providers", len(m.members)),
	)
}

// Stop ends the probe loop and waits for an in-flight probe to return.
func (m *Manager) Stop() {
	m.probeMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.probeMu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Checkers returns one health.Checker per enabled provider that reports the
// recorded state without calling the provider: unhealthy after a failed
// probe, degraded while the breaker is not closed, healthy otherwise.
func (m *Manager) Checkers() []health.Checker {
	out := make([]health.Checker, 0, len(m.members))
	for _, mem := range m.members {
		if !mem.config.Enabled {
			continue
		}
		out = append(out, health.NewCheckerFunc("provider:"+mem.id(), func(context.Context) health.Result {
			h := mem.health()
			details := map[string]any{
				"status":               h.Status,
				"consecutive_failures": h.ConsecutiveFailures,
				"breaker":              mem.breaker.State().String(),
			}
			if h.Status == health.StatusUnhealthy.String() {
				return health.Unhealthy("last probe failed", errors.New(h.Message)).WithDetails(details)
			}
			if st := mem.breaker.State(); st != resilience.StateClosed {
				return health.Degraded("circuit " + st.String()).WithDetails(details)
			}
			return health.Healthy("ok").WithDetails(details)
		}))
	}
	return out
}
