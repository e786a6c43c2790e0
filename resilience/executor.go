package resilience

import (
	"context"
	"time"
)

// Executor composes one provider's resilience patterns. Layers run
// outermost first:
//
//	rate limiter -> bulkhead -> circuit breaker -> timeout -> op
//
// A call refused by the rate limiter or the bulkhead never reaches the
// breaker, so local back-pressure is not counted against the provider. A
// timeout sits inside the breaker and is counted.
type Executor struct {
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it runs ops unguarded.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each call to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker { return e.circuitBreaker }

// Bulkhead returns the configured bulkhead, or nil.
func (e *Executor) Bulkhead() *Bulkhead { return e.bulkhead }

// RateLimiter returns the configured rate limiter, or nil.
func (e *Executor) RateLimiter() *RateLimiter { return e.rateLimiter }

type layer interface {
	Execute(context.Context, func(context.Context) error) error
}

// layers lists the configured patterns innermost first.
func (e *Executor) layers() []layer {
	var ls []layer
	if e.timeout != nil {
		ls = append(ls, e.timeout)
	}
	if e.circuitBreaker != nil {
		ls = append(ls, e.circuitBreaker)
	}
	if e.bulkhead != nil {
		ls = append(ls, e.bulkhead)
	}
	if e.rateLimiter != nil {
		ls = append(ls, e.rateLimiter)
	}
	return ls
}

// Execute runs op through every configured layer.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	for _, l := range e.layers() {
		inner := run
		run = func(ctx context.Context) error { return l.Execute(ctx, inner) }
	}
	return run(ctx)
}

// Limits is a point-in-time view of an executor's local limits. Fields for
// patterns that are not configured are nil.
type Limits struct {
	Bulkhead *BulkheadMetrics

	// Tokens is the rate limiter's remaining request budget.
	Tokens *float64
}

// Limits reports the bulkhead occupancy and rate-limit budget.
func (e *Executor) Limits() Limits {
	var l Limits
	if e.bulkhead != nil {
		m := e.bulkhead.Metrics()
		l.Bulkhead = &m
	}
	if e.rateLimiter != nil {
		t := e.rateLimiter.Tokens()
		l.Tokens = &t
	}
	return l
}
