package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrorHandler receives cache failures that were absorbed by a Loader.
// op is one of "get", "decode", "encode" or "set".
type ErrorHandler func(ctx context.Context, op, key string, err error)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Codec serializes values.
	// Default: JSONCodec
	Codec Codec

	// OnError is called for every absorbed cache failure.
	// Default: failures are dropped silently.
	OnError ErrorHandler
}

// Entry describes where a computed value is stored.
type Entry struct {
	Key  string
	TTL  time.Duration
	Tags []string
}

// ComputeFunc produces a value on a cache miss. store reports whether the
// value should be written back; errors are never cached.
type ComputeFunc[T any] func(ctx context.Context) (value T, store bool, err error)

// Loader is a read-through cache for values of type T.
//
// Contract:
//   - Degradation: a failing store never fails Load; the failure goes to
//     OnError and the value is computed as on a miss.
//   - Hits: a hit returns the decoded stored value without calling compute.
//   - Concurrency: concurrent misses on the same key share one compute call,
//     which runs with the context of the first caller.
type Loader[T any] struct {
	cache   Cache
	codec   Codec
	onError ErrorHandler
	group   singleflight.Group
}

// NewLoader creates a read-through loader over c. A nil c disables caching.
func NewLoader[T any](c Cache, config LoaderConfig) *Loader[T] {
	if config.Codec == nil {
		config.Codec = JSONCodec{}
	}
	return &Loader[T]{
		cache:   c,
		codec:   config.Codec,
		onError: config.OnError,
	}
}

// Load returns the cached value for entry.Key, or computes and stores it.
// hit reports whether the value came from the cache.
func (l *Loader[T]) Load(ctx context.Context, entry Entry, compute ComputeFunc[T]) (value T, hit bool, err error) {
	if cached, ok := l.lookup(ctx, entry.Key); ok {
		return cached, true, nil
	}

	res, err, _ := l.group.Do(entry.Key, func() (any, error) {
		v, store, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if store {
			l.store(ctx, entry, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	v, _ := res.(T)
	return v, false, nil
}

// Forget drops any in-flight compute for key so the next Load starts fresh.
func (l *Loader[T]) Forget(key string) {
	l.group.Forget(key)
}

func (l *Loader[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	if l.cache == nil {
		return v, false
	}

	data, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.report(ctx, "get", key, err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := l.codec.Unmarshal(data, &v); err != nil {
		l.report(ctx, "decode", key, err)
		var zero T
		return zero, false
	}
	return v, true
}

func (l *Loader[T]) store(ctx context.Context, entry Entry, v T) {
	if l.cache == nil || entry.TTL <= 0 {
		return
	}

	data, err := l.codec.Marshal(v)
	if err != nil {
		l.report(ctx, "encode", entry.Key, err)
		return
	}
	if err := l.cache.Set(ctx, entry.Key, data, entry.TTL, entry.Tags...); err != nil {
		l.report(ctx, "set", entry.Key, err)
	}
}

func (l *Loader[T]) report(ctx context.Context, op, key string, err error) {
	if l.onError != nil {
		l.onError(ctx, op, key, err)
	}
}
