package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFreeBusyCache(t *testing.T) {
	cache := NewMemoryFreeBusyCache()
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "freebusy:1:100:200", true, time.Minute))
	free, found, err := cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, free)

	// "busy" is a cacheable answer too.
	require.NoError(t, cache.Set(ctx, "freebusy:2:100:200", false, time.Minute))
	free, found, err = cache.Get(ctx, "freebusy:2:100:200")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, free)
}

func TestMemoryFreeBusyCache_Expiry(t *testing.T) {
	cache := NewMemoryFreeBusyCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", true, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisFreeBusyCache(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	cache := NewRedisFreeBusyCache(client)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "freebusy:1:100:200", true, time.Minute))
	free, found, err := cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, free)

	require.NoError(t, cache.Set(ctx, "freebusy:1:100:200", false, time.Minute))
	free, found, err = cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, free)

	// TTL expiry.
	s.FastForward(2 * time.Minute)
	_, found, err = cache.Get(ctx, "freebusy:1:100:200")
	require.NoError(t, err)
	assert.False(t, found)
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) (bool, bool, error) {
	return false, false, errors.New("connection refused")
}
func (brokenCache) Set(ctx context.Context, key string, free bool, ttl time.Duration) error {
	return errors.New("connection refused")
}

func TestFailoverFreeBusyCache(t *testing.T) {
	fallback := NewMemoryFreeBusyCache()
	cache := NewFailoverFreeBusyCache(brokenCache{}, fallback, nil)
	ctx := context.Background()

	// Writes land in the fallback when the primary is down.
	require.NoError(t, cache.Set(ctx, "key", true, time.Minute))

	free, found, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, free)
}

func TestFailoverFreeBusyCache_PrimaryPreferred(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	primary := NewRedisFreeBusyCache(client)
	fallback := NewMemoryFreeBusyCache()
	cache := NewFailoverFreeBusyCache(primary, fallback, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", true, time.Minute))

	// The value went to redis, not to the fallback.
	free, found, err := primary.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, free)

	_, found, err = fallback.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}
