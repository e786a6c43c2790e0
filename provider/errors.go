package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aks-o/voxlink-sub005/resilience"
)

// Sentinel errors.
var (
	// ErrAllProvidersUnavailable indicates every eligible provider was skipped
	// or failed.
	ErrAllProvidersUnavailable = errors.New("provider: all providers unavailable")

	// ErrNotAvailable indicates the number is no longer free. It is a valid
	// negative answer, not a provider fault.
	ErrNotAvailable = errors.New("provider: number not available")

	// ErrNotFound indicates the provider does not know the referenced entity.
	ErrNotFound = errors.New("provider: not found")

	// ErrUnknownProvider indicates a request named a provider that is not configured.
	ErrUnknownProvider = errors.New("provider: unknown provider")

	// ErrProviderDisabled indicates a request named a disabled provider.
	ErrProviderDisabled = errors.New("provider: provider is disabled")

	// ErrUnsupported indicates the provider does not offer the operation or region.
	ErrUnsupported = errors.New("provider: operation not supported")

	// ErrInvalidConfig indicates a provider configuration is unusable.
	ErrInvalidConfig = errors.New("provider: invalid config")

	// ErrUnknownType indicates no adapter factory is registered for a type.
	ErrUnknownType = errors.New("provider: unknown adapter type")
)

// Error is a failed call to one provider.
type Error struct {
	Provider   string
	Op         string
	StatusCode int // HTTP status from the vendor, 0 when none
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("provider ")
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call hit its deadline.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, resilience.ErrTimeout) ||
		errors.Is(e.Err, context.DeadlineExceeded) ||
		e.StatusCode == http.StatusGatewayTimeout ||
		e.StatusCode == http.StatusRequestTimeout
}

// wrapError attaches provider and operation to err unless it already names them.
func wrapError(providerID, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Provider == providerID {
		return err
	}
	return &Error{Provider: providerID, Op: op, Err: err}
}

// IsFailure reports whether err should count against a provider's circuit
// breaker. Negative answers (ErrNotAvailable, ErrNotFound), caller
// cancellation, local back-pressure and client-side 4xx errors are not
// provider faults; timeouts, transport errors, 429 and 5xx are.
func IsFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case resilience.IsRejection(err):
		return false
	}

	var pe *Error
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		return pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode == http.StatusRequestTimeout
	}
	return true
}

// isAbandoned reports whether the caller gave up on the call. The breaker
// learns nothing from such a call.
func isAbandoned(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Attempt records what happened to one provider during a failover pass.
type Attempt struct {
	Provider string
	Skipped  bool // breaker open or local back-pressure; the adapter was not called
	Err      error
}

// UnavailableError reports a failover pass in which no provider answered.
// It matches ErrAllProvidersUnavailable.
type UnavailableError struct {
	Op       string
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: %s: no eligible provider", ErrAllProvidersUnavailable, e.Op)
	}

	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Skipped {
			parts = append(parts, a.Provider+" skipped")
			continue
		}
		parts = append(parts, a.Provider+" failed")
	}
	return fmt.Sprintf("%s: %s: %s", ErrAllProvidersUnavailable, e.Op, strings.Join(parts, ", "))
}

// Is matches ErrAllProvidersUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrAllProvidersUnavailable
}

// Unwrap exposes the individual attempt errors.
func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// Retryable reports whether a later pass could succeed: at least one
// provider was actually called and failed with a fault.
func (e *UnavailableError) Retryable() bool {
	for _, a := range e.Attempts {
		if !a.Skipped && IsFailure(a.Err) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether repeating the call that produced err may
// succeed. Negative answers, configuration errors, caller cancellation and
// passes where every provider was skipped are not retryable.
func IsRetryable(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrProviderDisabled),
		errors.Is(err, ErrUnsupported), errors.Is(err, ErrInvalidConfig):
		return false
	}

	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return IsFailure(err)
}
