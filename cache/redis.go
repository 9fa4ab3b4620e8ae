package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/go-redis/redis/v8"
)

// wireEntry is CacheEntry[T]'s JSON wire shape: Positive=false means a
// negative (confirmed-absent) marker and Value is omitted.
type wireEntry[T any] struct {
	Positive bool `json:"p"`
	Value    T    `json:"v,omitempty"`
}

// RedisBackend is a Backend backed by a shared redis.Cmdable, prefixing
// every key so the gateway's cache collections can share a redis instance
// with unrelated data without collision.
type RedisBackend[T any] struct {
	client  redis.Cmdable
	prefix  string
	metrics *metrics
}

// NewRedisBackend wraps client for the named collection, prefixing keys
// with keyPrefix+collection+":".
func NewRedisBackend[T any](client redis.Cmdable, keyPrefix, collection string) *RedisBackend[T] {
	return &RedisBackend[T]{
		client:  client,
		prefix:  keyPrefix + collection + ":",
		metrics: newMetrics(collection, "redis"),
	}
}

func (b *RedisBackend[T]) fullKey(key string) string {
	return b.prefix + key
}

func (b *RedisBackend[T]) Get(ctx context.Context, key string) (CacheEntry[T], bool, error) {
	raw, err := b.client.Get(ctx, b.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		b.metrics.miss()
		return CacheEntry[T]{}, false, nil
	}
	if err != nil {
		b.metrics.errored()
		return CacheEntry[T]{}, false, errors.Wrap(err, "redis get")
	}

	var w wireEntry[T]
	if err := json.Unmarshal(raw, &w); err != nil {
		b.metrics.errored()
		return CacheEntry[T]{}, false, errors.Wrap(err, "decode cache entry")
	}
	b.metrics.hit()
	if !w.Positive {
		return Negative[T](), true, nil
	}
	return Positive(w.Value), true, nil
}

func (b *RedisBackend[T]) Set(ctx context.Context, key string, entry CacheEntry[T], ttl time.Duration) error {
	v, ok := entry.Value()
	raw, err := json.Marshal(wireEntry[T]{Positive: ok, Value: v})
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	if err := b.client.Set(ctx, b.fullKey(key), raw, ttl).Err(); err != nil {
		b.metrics.errored()
		return errors.Wrap(err, "redis set")
	}
	b.metrics.set()
	return nil
}

func (b *RedisBackend[T]) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.fullKey(key)).Err(); err != nil {
		b.metrics.errored()
		return errors.Wrap(err, "redis del")
	}
	b.metrics.del()
	return nil
}

// Clear is unsupported on the shared redis backend: a SCAN+DEL over a
// prefix is a heavy operation and nothing in the relay path calls it
// today. It exists to satisfy Backend and returns an error if invoked.
func (b *RedisBackend[T]) Clear(_ context.Context) error {
	return errors.Errorf("RedisBackend.Clear is not supported; evict keys individually")
}

func (b *RedisBackend[T]) MGet(ctx context.Context, keys []string) (map[string]CacheEntry[T], error) {
	out := make(map[string]CacheEntry[T], len(keys))
	for _, k := range keys {
		entry, ok, err := b.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = entry
		}
	}
	return out, nil
}

func (b *RedisBackend[T]) MSet(ctx context.Context, entries map[string]CacheEntry[T], ttl time.Duration) error {
	for k, v := range entries {
		if err := b.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}
