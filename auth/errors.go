package auth

import "errors"

// Sentinel errors.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// ErrForbidden indicates an authenticated operator lacks the required role.
	ErrForbidden = errors.New("auth: access denied")
)
