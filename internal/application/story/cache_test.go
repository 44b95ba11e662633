package story

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetMiss(t *testing.T) {
	c := NewMemoryCache(0)

	_, hit, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k1", "a story"))

	got, hit, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "a story", got)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k1", "first"))
	require.NoError(t, c.Put(ctx, "k1", "second"))

	got, hit, _ := c.Get(ctx, "k1")
	require.True(t, hit)
	assert.Equal(t, "second", got)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := NewMemoryCache(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)))
	}

	// 访问 k0 使其成为最新，k1 变为最久未使用
	_, hit, _ := c.Get(ctx, "k0")
	require.True(t, hit)

	require.NoError(t, c.Put(ctx, "k3", "v3"))
	assert.Equal(t, 3, c.Len())

	_, hit, _ = c.Get(ctx, "k1")
	assert.False(t, hit, "least recently used entry must be evicted")

	for _, k := range []string{"k0", "k2", "k3"} {
		_, hit, _ := c.Get(ctx, k)
		assert.True(t, hit, "entry %s must survive eviction", k)
	}
}

func TestMemoryCacheUnbounded(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), "v"))
	}
	assert.Equal(t, 1000, c.Len())
}
