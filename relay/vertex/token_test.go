package vertex

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenCache_MintsAndCachesUntilExpiry(t *testing.T) {
	var calls int32
	tc := NewTokenCache()
	tc.mintFn = func(ctx context.Context, sa []byte) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "token-1", time.Now().Add(time.Hour), nil
	}

	tok, err := tc.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Equal(t, "token-1", tok)

	tok, err = tc.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Equal(t, "token-1", tok)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "cached token should not re-mint")
}

func TestTokenCache_RemintsAfterExpiry(t *testing.T) {
	var calls int32
	tc := NewTokenCache()
	tc.mintFn = func(ctx context.Context, sa []byte) (string, time.Time, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "stale", time.Now().Add(-time.Second), nil
		}
		return "fresh", time.Now().Add(time.Hour), nil
	}

	tok, err := tc.Get(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Equal(t, "stale", tok)

	tok, err = tc.Get(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
}

func TestTokenCache_IsolatedPerKeyID(t *testing.T) {
	tc := NewTokenCache()
	n := int32(0)
	tc.mintFn = func(ctx context.Context, sa []byte) (string, time.Time, error) {
		n++
		if n == 1 {
			return "for-key-1", time.Now().Add(time.Hour), nil
		}
		return "for-key-2", time.Now().Add(time.Hour), nil
	}

	tok1, err := tc.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	tok2, err := tc.Get(context.Background(), 2, nil)
	require.NoError(t, err)

	require.Equal(t, "for-key-1", tok1)
	require.Equal(t, "for-key-2", tok2)
}
