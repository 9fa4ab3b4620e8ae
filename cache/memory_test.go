package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_SetGet(t *testing.T) {
	b := NewMemoryBackend[string]("test", 0)
	defer b.Close()
	ctx := context.Background()

	_, hit, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, b.Set(ctx, "k", Positive("v"), 0))
	entry, hit, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	v, ok := entry.Value()
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestMemoryBackend_NegativeEntry(t *testing.T) {
	b := NewMemoryBackend[string]("test", 0)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", Negative[string](), 0))
	entry, hit, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	_, ok := entry.Value()
	require.False(t, ok)
}

func TestMemoryBackend_TTLExpiry(t *testing.T) {
	b := NewMemoryBackend[string]("test", 0)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", Positive("v"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, hit, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, hit, "entry should have expired")
}

func TestMemoryBackend_Sweeper(t *testing.T) {
	b := NewMemoryBackend[string]("test", 10*time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", Positive("v"), 5*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	b.mu.RLock()
	_, stillPresent := b.data["k"]
	b.mu.RUnlock()
	require.False(t, stillPresent, "sweeper should have removed the expired row")
}

func TestMemoryBackend_DeleteAndClear(t *testing.T) {
	b := NewMemoryBackend[string]("test", 0)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a", Positive("1"), 0))
	require.NoError(t, b.Set(ctx, "b", Positive("2"), 0))

	require.NoError(t, b.Delete(ctx, "a"))
	_, hit, _ := b.Get(ctx, "a")
	require.False(t, hit)

	require.NoError(t, b.Clear(ctx))
	_, hit2, _ := b.Get(ctx, "b")
	require.False(t, hit2)
}

func TestMemoryBackend_MGetMSet(t *testing.T) {
	b := NewMemoryBackend[int]("test", 0)
	defer b.Close()
	ctx := context.Background()

	err := b.MSet(ctx, map[string]CacheEntry[int]{
		"a": Positive(1),
		"b": Negative[int](),
	}, 0)
	require.NoError(t, err)

	got, err := b.MGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	v, ok := got["a"].Value()
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = got["b"].Value()
	require.False(t, ok)
}
