package auth

import (
	"context"
	"net/http"
)

// Authenticator validates operator credentials.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, ErrX) for rejected credentials,
//     where ErrX is one of this package's sentinels. Any other error is an
//     internal failure.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(r *http.Request) bool

	// Authenticate validates the request's credentials.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// Chain tries authenticators in order and uses the first that supports the
// request. A request no authenticator supports fails with
// ErrMissingCredentials.
type Chain []Authenticator

// Name returns "chain".
func (c Chain) Name() string {
	return "chain"
}

// Supports reports whether any authenticator supports r.
func (c Chain) Supports(r *http.Request) bool {
	for _, a := range c {
		if a.Supports(r) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first authenticator supporting r.
func (c Chain) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	for _, a := range c {
		if a.Supports(r) {
			return a.Authenticate(ctx, r)
		}
	}
	return nil, ErrMissingCredentials
}

var _ Authenticator = Chain(nil)
