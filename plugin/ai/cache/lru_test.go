package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddingCacheGetSet(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("what is the retention period", []float32{0.1, 0.2, 0.3})
	vec, ok := c.Get("what is the retention period")
	require.True(t, ok)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbeddingCacheEviction(t *testing.T) {
	c := NewEmbeddingCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("query-%d", i), []float32{float32(i)})
	}
	require.Equal(t, 3, c.Size())

	// Touch query-0 so query-1 becomes the eviction candidate.
	_, ok := c.Get("query-0")
	require.True(t, ok)

	c.Set("query-3", []float32{3})
	require.Equal(t, 3, c.Size())

	_, ok = c.Get("query-1")
	require.False(t, ok)
	_, ok = c.Get("query-0")
	require.True(t, ok)
}

func TestEmbeddingCacheExpiry(t *testing.T) {
	c := NewEmbeddingCache(10, 10*time.Millisecond)

	c.Set("q", []float32{1})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("q")
	require.False(t, ok)

	c.Set("q2", []float32{2})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, c.CleanupExpired())
	require.Equal(t, 0, c.Size())
}

func TestEmbeddingCacheUpdateExisting(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)

	c.Set("q", []float32{1})
	c.Set("q", []float32{2})
	require.Equal(t, 1, c.Size())

	vec, ok := c.Get("q")
	require.True(t, ok)
	require.Equal(t, []float32{2}, vec)
}
