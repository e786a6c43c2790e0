// Package static implements a provider.Adapter over a fixed in-memory
// inventory. It backs local development, demos and tests, and can be told
// to fail on demand to exercise failover.
package static
