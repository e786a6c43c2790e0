package health

import (
	"context"
	"fmt"
	"time"
)

// Status orders component states from best to worst, so the larger of two
// statuses is the more severe.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("health: unknown status %q", text)
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	return max(s, other)
}

// Result is the outcome of one check. Duration and Timestamp are filled in
// by the Aggregator when the checker leaves them unset.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

// Healthy creates a healthy result.
func Healthy(message string) Result { return newResult(StatusHealthy, message, nil) }

// Degraded creates a degraded result.
func Degraded(message string) Result { return newResult(StatusDegraded, message, nil) }

// Unhealthy creates an unhealthy result carrying err.
func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details attached.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker reports the state of one dependency: a provider, the database.
//
// Contract:
//   - Concurrency: Check may be called from several goroutines.
//   - Context: Check must return promptly once ctx is done.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc names fn as a Checker.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// PingOption configures NewPingChecker.
type PingOption func(*pingChecker)

// WithSlowThreshold reports a successful ping slower than d as degraded.
func WithSlowThreshold(d time.Duration) PingOption {
	return func(p *pingChecker) { p.slow = d }
}

type pingChecker struct {
	name string
	ping func(context.Context) error
	slow time.Duration
}

// NewPingChecker turns a reachability probe into a Checker: a nil error is
// healthy, anything else unhealthy. The ping latency is reported in the
// "latency_ms" detail.
func NewPingChecker(name string, ping func(context.Context) error, opts ...PingOption) Checker {
	p := &pingChecker{name: name, ping: ping}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pingChecker) Name() string { return p.name }

func (p *pingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	err := p.ping(ctx)
	elapsed := time.Since(start)
	details := map[string]any{"latency_ms": elapsed.Milliseconds()}

	switch {
	case err != nil:
		return Unhealthy("ping failed", err).WithDetails(details)
	case p.slow > 0 && elapsed > p.slow:
		return Degraded("ping slow").WithDetails(details)
	default:
		return Healthy("reachable").WithDetails(details)
	}
}
