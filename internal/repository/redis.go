package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFreeBusyCache is the shared cache: all API instances see the same
// external free/busy answers.
type RedisFreeBusyCache struct {
	client *redis.Client
}

func NewRedisFreeBusyCache(client *redis.Client) *RedisFreeBusyCache {
	return &RedisFreeBusyCache{client: client}
}

func (c *RedisFreeBusyCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val == "1", true, nil
}

func (c *RedisFreeBusyCache) Set(ctx context.Context, key string, free bool, ttl time.Duration) error {
	val := "0"
	if free {
		val = "1"
	}
	if err := c.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
