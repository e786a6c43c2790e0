// Package httpvendor implements provider.Adapter for vendors exposing the
// common JSON-over-HTTP numbering API. Requests carry a short-lived HS256
// bearer token signed with the vendor API secret; prices arrive as decimal
// strings and are converted to integer minor units.
package httpvendor
