// Package resilience provides the fault-isolation primitives used around
// every upstream provider call.
//
// # Patterns
//
//   - Circuit Breaker: stops calling a provider after a run of consecutive
//     failures and admits a single trial call once the recovery timeout
//     has elapsed.
//
//   - Retry: a bounded attempt loop with exponential backoff, a delay cap and
//     additive jitter. Sleep and randomness are injectable so schedules can
//     be tested without wall-clock waits.
//
//   - Rate Limiter: a token bucket holding a provider's request budget.
//
//   - Bulkhead: caps the calls in flight to one provider.
//
//   - Timeout: bounds a single call and propagates the deadline through the
//     context handed to the call.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 20, Burst: 5})),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 8})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return vendor.Search(ctx, req)
//	})
//
// Retry is deliberately not part of Executor: callers that own a retry
// budget wrap the whole failover sequence instead of a single provider call.
package resilience
