// Package secret resolves provider credentials referenced from configuration.
//
// Values go through strict environment expansion first (see ExpandEnvStrict),
// then any "secretref:<provider>:<ref>" reference is resolved by the named
// Provider:
//   - Full value:  secretref:env:TWILIO_AUTH_TOKEN
//   - Inline use:  Bearer secretref:file:bandwidth/api_key
package secret
