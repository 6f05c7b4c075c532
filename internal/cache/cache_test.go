package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "product:12", ProductKey(12))
}

func TestNilCacheMisses(t *testing.T) {
	t.Parallel()
	var c *Cache
	var dest map[string]any

	ok, err := c.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(context.Background(), "k", 1))
	assert.NoError(t, c.Delete(context.Background(), "k"))
}

func TestUnreachableRedisReturnsError(t *testing.T) {
	t.Parallel()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := New(rdb, ProductTTL)

	var dest map[string]any
	ok, err := c.Get(context.Background(), "product:1", &dest)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRoundTripAgainstRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := NewClient(addr, "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	c := New(rdb, time.Minute)
	ctx := context.Background()

	type item struct{ Name string }
	require.NoError(t, c.Set(ctx, "test:item", item{Name: "pen"}))

	var got item
	ok, err := c.Get(ctx, "test:item", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pen", got.Name)

	require.NoError(t, c.Delete(ctx, "test:item"))
	ok, err = c.Get(ctx, "test:item", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
