package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aks-o/voxlink-sub005/resilience"
)

func ExampleCircuitBreaker_State() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
	})

	fmt.Println("Initial state:", cb.State())

	vendorDown := errors.New("vendor unavailable")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return vendorDown
		})
	}
	fmt.Println("After failures:", cb.State())
	fmt.Println("Allow:", cb.Allow())

	cb.Reset()
	fmt.Println("After reset:", cb.State())
	// Output:
	// Initial state: closed
	// After failures: open
	// Allow: false
	// After reset: closed
}

func ExampleRetry_Delay() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
	})

	for attempt := 1; attempt <= 4; attempt++ {
		fmt.Printf("attempt %d: %v\n", attempt, r.Delay(attempt))
	}
	// Output:
	// attempt 1: 1s
	// attempt 2: 2s
	// attempt 3: 4s
	// attempt 4: 5s
}
