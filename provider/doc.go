// Package provider defines the canonical number-provisioning model, the
// Adapter contract every upstream telecom vendor implements, and the Manager
// that fronts a priority-ordered set of adapters.
//
// The Manager gives each provider its own circuit breaker, optional rate
// limiter and bulkhead, and per-call timeout. Searches fail over in priority
// order and the first provider that answers wins; stateful operations
// (reserve, purchase, port) go only to the provider named in the request.
// A background prober pings every provider and records health snapshots
// without touching the breakers.
package provider
