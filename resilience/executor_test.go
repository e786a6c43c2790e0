package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()

	executed := false
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		executed = true
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !executed {
		t.Error("operation was not executed")
	}
	if e.CircuitBreaker() != nil || e.Bulkhead() != nil {
		t.Error("default executor should carry no breaker or bulkhead")
	}
}

func TestExecutor_TimeoutCountsAsBreakerFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithTimeout(5*time.Millisecond),
	)

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("breaker state = %v, want open after a timeout", cb.State())
	}
}

func TestExecutor_RejectionsDoNotTripBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	clock := newFakeClock()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: clock.Now})
	e := NewExecutor(WithCircuitBreaker(cb), WithRateLimiter(rl))

	ok := func(ctx context.Context) error { return nil }
	if err := e.Execute(context.Background(), ok); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := e.Execute(context.Background(), ok); !errors.Is(err, ErrRateLimitExceeded) {
			t.Fatalf("Execute() error = %v, want ErrRateLimitExceeded", err)
		}
	}
	if cb.State() != StateClosed {
		t.Errorf("breaker state = %v, want closed", cb.State())
	}
}

func TestExecutor_BulkheadWrapsBreaker(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	e := NewExecutor(WithBulkhead(b), WithCircuitBreaker(cb))

	testErr := errors.New("vendor 503")
	if err := e.Execute(context.Background(), func(ctx context.Context) error { return testErr }); err != testErr {
		t.Fatalf("Execute() error = %v, want %v", err, testErr)
	}
	if err := e.Execute(context.Background(), func(ctx context.Context) error { return nil }); err != ErrCircuitOpen {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if m := b.Metrics(); m.Active != 0 {
		t.Errorf("bulkhead Active = %d, want 0 after calls return", m.Active)
	}
}

func TestExecutor_Limits(t *testing.T) {
	if l := NewExecutor().Limits(); l.Bulkhead != nil || l.Tokens != nil {
		t.Errorf("Limits() = %+v, want empty", l)
	}

	clock := newFakeClock()
	e := NewExecutor(
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 4})),
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 3, Now: clock.Now})),
	)

	var during Limits
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		during = e.Limits()
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if during.Bulkhead == nil || during.Bulkhead.Active != 1 || during.Bulkhead.MaxConcurrent != 4 {
		t.Errorf("Limits().Bulkhead during call = %+v, want 1 of 4 active", during.Bulkhead)
	}
	if during.Tokens == nil || *during.Tokens != 2 {
		t.Errorf("Limits().Tokens during call = %v, want 2", during.Tokens)
	}
}
