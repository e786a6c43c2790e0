package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrInvalidTag = errors.New("cache: tag is invalid")
)

// Cache is a key/value store with per-entry TTL and invalidation tags.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods should honor cancellation/deadlines where applicable.
//   - Misses: a missing key and an expired key are both reported as
//     (nil, false, nil). A non-nil error means the store itself failed.
//   - Tags: InvalidateTag removes every live entry that was Set with the tag
//     and reports how many were removed.
type Cache interface {
	// Get retrieves a cached value.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL and tags. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error

	// Delete removes a cached value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// InvalidateTag removes all entries carrying tag.
	InvalidateTag(ctx context.Context, tag string) (int, error)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Tag joins a tag kind and value, e.g. Tag("country", "US") == "country:US".
func Tag(kind, value string) string {
	return kind + ":" + value
}
