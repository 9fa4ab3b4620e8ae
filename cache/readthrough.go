package cache

import (
	"context"
	"time"
)

// Loader fetches the authoritative value for key when ReadThrough misses,
// reporting found=false (not an error) when the row genuinely does not
// exist so ReadThrough can cache that as a Negative entry.
type Loader[T any] func(ctx context.Context, key string) (value T, found bool, err error)

// ReadThrough is one named cache collection: a Backend plus the loader that
// refills it on miss and the TTLs to apply to positive/negative entries.
// This is the Go shape of the original's per-collection cache wrapper
// around CacheBackend<T>.
type ReadThrough[T any] struct {
	backend     Backend[T]
	load        Loader[T]
	positiveTTL time.Duration
	negativeTTL time.Duration
}

// NewReadThrough builds a collection over backend, refilling via load.
func NewReadThrough[T any](backend Backend[T], load Loader[T], positiveTTL, negativeTTL time.Duration) *ReadThrough[T] {
	return &ReadThrough[T]{backend: backend, load: load, positiveTTL: positiveTTL, negativeTTL: negativeTTL}
}

// Get returns the cached value for key, loading and populating the cache
// on miss. found=false with err=nil means the row is confirmed absent
// (either from a fresh negative cache hit or a loader miss just recorded).
func (r *ReadThrough[T]) Get(ctx context.Context, key string) (value T, found bool, err error) {
	if entry, hit, err := r.backend.Get(ctx, key); err == nil && hit {
		v, ok := entry.Value()
		return v, ok, nil
	}

	v, ok, err := r.load(ctx, key)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if ok {
		_ = r.backend.Set(ctx, key, Positive(v), r.positiveTTL)
		return v, true, nil
	}

	_ = r.backend.Set(ctx, key, Negative[T](), r.negativeTTL)
	var zero T
	return zero, false, nil
}

// Invalidate drops key from the collection, forcing the next Get to reload.
func (r *ReadThrough[T]) Invalidate(ctx context.Context, key string) error {
	return r.backend.Delete(ctx, key)
}
