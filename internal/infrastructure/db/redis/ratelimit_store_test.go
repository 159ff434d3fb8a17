package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, limit int, window time.Duration) (*RateLimitStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimitStore(client, limit, window, zerolog.Nop()), mr
}

func TestRateLimitStore_AllowsUpToLimit(t *testing.T) {
	store, _ := newTestStore(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, err := store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Allow("10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok, "other identifiers have their own window")
}

func TestRateLimitStore_WindowExpires(t *testing.T) {
	store, mr := newTestStore(t, 1, time.Minute)

	ok, _ := store.Allow("ip")
	assert.True(t, ok)
	ok, _ = store.Allow("ip")
	assert.False(t, ok)

	assert.Equal(t, time.Minute, mr.TTL(rateLimitKeyPrefix+"ip"))
	mr.FastForward(time.Minute + time.Second)

	ok, _ = store.Allow("ip")
	assert.True(t, ok)
}

func TestRateLimitStore_FailsOpen(t *testing.T) {
	store, mr := newTestStore(t, 1, time.Minute)
	mr.Close()

	ok, err := store.Allow("ip")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimitStore_CounterAlwaysExpires(t *testing.T) {
	store, mr := newTestStore(t, 5, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := store.Allow("10.0.0.9")
		require.NoError(t, err)

		ttl := mr.TTL(rateLimitKeyPrefix + "10.0.0.9")
		assert.Greater(t, ttl, time.Duration(0), "counter must carry a TTL after request %d", i+1)
		assert.LessOrEqual(t, ttl, time.Minute)
	}

	v, err := mr.Get(rateLimitKeyPrefix + "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestConnect_URL(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), Config{Addr: "redis://" + mr.Addr() + "/2", PoolSize: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 2, client.Options().DB)
	assert.Equal(t, 3, client.Options().PoolSize)

	_, err = Connect(context.Background(), Config{Addr: "redis://:bad:port"})
	assert.Error(t, err)
}
