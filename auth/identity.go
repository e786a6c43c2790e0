package auth

import (
	"slices"
	"time"
)

// Method indicates how an operator authenticated.
type Method string

// Authentication methods.
const (
	MethodAPIKey Method = "api_key"
	MethodJWT    Method = "jwt"
)

// Operator roles.
const (
	// RoleViewer may read provider status.
	RoleViewer = "viewer"

	// RoleAdmin may also invalidate caches.
	RoleAdmin = "admin"
)

// Identity is an authenticated operator.
type Identity struct {
	// Principal names the operator, e.g. an email or a service name.
	Principal string

	Roles  []string
	Method Method

	// KeyID is the API key ID or the token's jti.
	KeyID string

	// ExpiresAt is zero for credentials that never expire.
	ExpiresAt time.Time
}

// HasRole reports whether the identity holds role. Admins hold every role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Roles, role) || slices.Contains(id.Roles, RoleAdmin)
}

// HasAnyRole reports whether the identity holds at least one of roles.
// An empty list is satisfied by any identity.
func (id *Identity) HasAnyRole(roles ...string) bool {
	if id == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return slices.ContainsFunc(roles, id.HasRole)
}
