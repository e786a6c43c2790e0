// Package auth authenticates operators calling voxlinkd's administrative
// endpoints.
//
// Operators present either a static API key (stored hashed) or an HS256
// bearer token. Authenticators are tried in order by a Chain, and Require
// wraps an http.Handler so that only identities holding one of the listed
// roles reach it.
package auth
