package fec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheGetRelease(t *testing.T) {
	c := NewCache()
	a, err := c.Get(10, 3)
	require.NoError(t, err)
	b, err := c.Get(10, 3)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, 1, c.Len())

	other, err := c.Get(3, 10)
	require.NoError(t, err)
	require.NotSame(t, a, other)
	require.Equal(t, 2, c.Len())

	c.Release(10, 3)
	require.Equal(t, 1, c.Len())
	fresh, err := c.Get(10, 3)
	require.NoError(t, err)
	require.NotSame(t, a, fresh)

	// A released context stays usable.
	shards := [][]byte{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}, {0}, {0}, {0}}
	require.NoError(t, a.Encode(shards))
}

func TestCacheInvalid(t *testing.T) {
	c := NewCache()
	_, err := c.Get(0, 1)
	require.ErrorIs(t, err, ErrInvShardNum)
	_, err = c.Get(250, 10)
	require.ErrorIs(t, err, ErrMaxShardNum)
	require.Equal(t, 0, c.Len())
}

func TestCacheConcurrentGet(t *testing.T) {
	c := NewCache()
	const n = 16
	got := make([]*Context, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, err := c.Get(100, 20)
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = ctx
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		require.Same(t, got[0], got[i])
	}
	require.Equal(t, 1, c.Len())
}
