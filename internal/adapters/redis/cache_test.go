package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "myrestaurants/internal/adapters/redis"
	"myrestaurants/internal/domain"
)

func newCache(t *testing.T) (*redisad.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	require.NoError(t, c.Ping(ctx))

	in := domain.Restaurant{ID: 4, Name: "Casa", Telephone: "123"}
	require.NoError(t, c.Set(ctx, "myrestaurants.restaurant:4", in, 60))
	assert.True(t, mr.Exists("myrestaurants:myrestaurants.restaurant:4"))

	var out domain.Restaurant
	ok, err := c.Get(ctx, "myrestaurants.restaurant:4", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	mr.FastForward(61 * time.Second)
	ok, err = c.Get(ctx, "myrestaurants.restaurant:4", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_DelAndCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, 60))
	require.NoError(t, c.Del(ctx, "k"))
	var dst map[string]int
	ok, err := c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("myrestaurants:bad", "{not json"))
	ok, err = c.Get(ctx, "bad", &dst)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_BackendDown(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()
	var dst string
	_, err := c.Get(context.Background(), "k", &dst)
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}
