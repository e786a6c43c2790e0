// Package store records the provisioning state of numbers that were
// reserved, purchased or ported through the orchestrator. Search results
// are never persisted here; they live in the cache.
package store
