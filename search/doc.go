// Package search is the caller-facing number search service.
//
// The Orchestrator validates criteria before any I/O, serves repeated
// searches from a tagged cache, retries the provider manager with
// exponential backoff and jitter, ranks results by caller preference and
// applies hard filters. It also answers single-number detail lookups,
// bounded-concurrency bulk availability checks, and forwards the stateful
// reserve, purchase and port operations to the provider that owns them.
package search
