package repository

import (
	"context"
	"sync/atomic"
	"time"

	"roomsync/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverFreeBusyCache prefers the shared primary (redis) and falls back to
// the in-memory cache when it misbehaves, retrying the primary after a
// cool-off period.
type FailoverFreeBusyCache struct {
	primary   domain.FreeBusyCache
	fallback  domain.FreeBusyCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverFreeBusyCache(primary, fallback domain.FreeBusyCache, logger *zerolog.Logger) *FailoverFreeBusyCache {
	return &FailoverFreeBusyCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

const recoveryInterval = time.Minute

func (c *FailoverFreeBusyCache) Get(ctx context.Context, key string) (bool, bool, error) {
	if c.primaryUsable() {
		free, found, err := c.primary.Get(ctx, key)
		if err == nil {
			c.markUp()
			return free, found, nil
		}
		c.markDown(err)
	}
	return c.fallback.Get(ctx, key)
}

func (c *FailoverFreeBusyCache) Set(ctx context.Context, key string, free bool, ttl time.Duration) error {
	if c.primaryUsable() {
		if err := c.primary.Set(ctx, key, free, ttl); err == nil {
			c.markUp()
			return nil
		} else {
			c.markDown(err)
		}
	}
	return c.fallback.Set(ctx, key, free, ttl)
}

func (c *FailoverFreeBusyCache) primaryUsable() bool {
	if !c.isDown.Load() {
		return true
	}
	// Retry the primary after the cool-off period.
	return time.Since(time.Unix(c.lastCheck.Load(), 0)) > recoveryInterval
}

func (c *FailoverFreeBusyCache) markUp() {
	c.isDown.Store(false)
}

func (c *FailoverFreeBusyCache) markDown(err error) {
	if c.logger != nil {
		c.logger.Error().Err(err).Msg("primary freebusy cache failed, falling back to memory")
	}
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().Unix())
}
