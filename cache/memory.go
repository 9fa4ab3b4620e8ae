package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/zap"

	"github.com/cyder-hub/cyder-gateway/common/logger"
)

type memoryRow[T any] struct {
	entry   CacheEntry[T]
	expires time.Time // zero means never expires
}

// MemoryBackend is an in-process Backend backed by a mutex-guarded map plus
// a periodic sweeper goroutine, the Go shape of the original's
// DashMap-backed MemoryCacheBackend with its own cleanup_task.
type MemoryBackend[T any] struct {
	mu      sync.RWMutex
	data    map[string]memoryRow[T]
	metrics *metrics

	stop chan struct{}
}

// NewMemoryBackend builds a MemoryBackend and, when sweepInterval > 0,
// starts its sweeper, ticking every sweepInterval to drop expired rows
// proactively rather than relying solely on lazy expiration at Get time.
// With sweepInterval <= 0 no sweeper runs and rows expire only lazily.
func NewMemoryBackend[T any](collection string, sweepInterval time.Duration) *MemoryBackend[T] {
	b := &MemoryBackend[T]{
		data:    make(map[string]memoryRow[T]),
		metrics: newMetrics(collection, "memory"),
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go b.sweepLoop(sweepInterval)
	}
	return b
}

// Close stops the sweeper goroutine. Tests that construct a MemoryBackend
// directly should call it to avoid leaking the ticker.
func (b *MemoryBackend[T]) Close() {
	close(b.stop)
}

func (b *MemoryBackend[T]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.sweep()
		case <-b.stop:
			return
		}
	}
}

func (b *MemoryBackend[T]) sweep() {
	now := time.Now()
	b.mu.Lock()
	removed := 0
	for k, row := range b.data {
		if !row.expires.IsZero() && now.After(row.expires) {
			delete(b.data, k)
			removed++
		}
	}
	b.mu.Unlock()
	if removed > 0 {
		logger.Logger.Debug("swept expired cache entries",
			zap.String("collection", b.metrics.collection),
			zap.Int("removed", removed))
	}
}

func (b *MemoryBackend[T]) Get(_ context.Context, key string) (CacheEntry[T], bool, error) {
	b.mu.RLock()
	row, ok := b.data[key]
	b.mu.RUnlock()

	if !ok {
		b.metrics.miss()
		return CacheEntry[T]{}, false, nil
	}
	if !row.expires.IsZero() && time.Now().After(row.expires) {
		b.metrics.miss()
		return CacheEntry[T]{}, false, nil
	}
	b.metrics.hit()
	return row.entry, true, nil
}

func (b *MemoryBackend[T]) Set(_ context.Context, key string, entry CacheEntry[T], ttl time.Duration) error {
	row := memoryRow[T]{entry: entry}
	if ttl > 0 {
		row.expires = time.Now().Add(ttl)
	}
	b.mu.Lock()
	b.data[key] = row
	b.mu.Unlock()
	b.metrics.set()
	return nil
}

func (b *MemoryBackend[T]) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.data, key)
	b.mu.Unlock()
	b.metrics.del()
	return nil
}

func (b *MemoryBackend[T]) Clear(_ context.Context) error {
	b.mu.Lock()
	b.data = make(map[string]memoryRow[T])
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend[T]) MGet(ctx context.Context, keys []string) (map[string]CacheEntry[T], error) {
	out := make(map[string]CacheEntry[T], len(keys))
	for _, k := range keys {
		if entry, ok, _ := b.Get(ctx, k); ok {
			out[k] = entry
		}
	}
	return out, nil
}

func (b *MemoryBackend[T]) MSet(ctx context.Context, entries map[string]CacheEntry[T], ttl time.Duration) error {
	for k, v := range entries {
		if err := b.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}
