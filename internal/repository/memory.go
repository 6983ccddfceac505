package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	free      bool
	expiresAt time.Time
}

// MemoryFreeBusyCache is the in-process fallback cache. Entries expire
// lazily on read.
type MemoryFreeBusyCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryFreeBusyCache() *MemoryFreeBusyCache {
	return &MemoryFreeBusyCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryFreeBusyCache) Get(ctx context.Context, key string) (bool, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false, nil
	}
	return entry.free, true, nil
}

func (c *MemoryFreeBusyCache) Set(ctx context.Context, key string, free bool, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{free: free, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
