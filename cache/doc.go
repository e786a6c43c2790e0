// Package cache provides the tag-addressable TTL cache that shields upstream
// providers from redundant lookups.
//
// It defines the Cache contract (get, set with TTL and tags, delete, tag
// invalidation), an in-memory implementation, deterministic SHA-256 key
// derivation over canonical JSON, TTL policies, payload codecs with optional
// zstd compression, and a generic read-through Loader.
package cache
