package cache

import (
	"context"
	"time"
)

// Backend is the six-operation contract every cache implementation (memory,
// redis) satisfies, matching the original CacheBackend<T> trait: single and
// batched get/set, delete, and clear. ttl of 0 means "never expires".
type Backend[T any] interface {
	Get(ctx context.Context, key string) (CacheEntry[T], bool, error)
	Set(ctx context.Context, key string, entry CacheEntry[T], ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	MGet(ctx context.Context, keys []string) (map[string]CacheEntry[T], error)
	MSet(ctx context.Context, entries map[string]CacheEntry[T], ttl time.Duration) error
}
