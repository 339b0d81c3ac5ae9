package status

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry    Entry
	expireAt time.Time
}

// MemoryCache is an in-process Cache. Expired items are hidden from Get and
// removed by Purge.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if cur, ok := c.items[key]; ok && now.Before(cur.expireAt) && cur.entry.Status.Terminal() {
		return ErrTerminal
	}
	c.items[key] = memoryItem{entry: entry, expireAt: now.Add(ttl)}
	return nil
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || !c.now().Before(item.expireAt) {
		return Entry{}, ErrNotFound
	}
	return item.entry, nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Purge removes expired items and reports how many were dropped.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if !now.Before(item.expireAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored items, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
