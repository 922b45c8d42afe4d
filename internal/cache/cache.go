package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte cache with a fixed TTL. Both backends degrade to a miss on
// any failure; a cache must never fail a request.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Name() string
}

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache provides thread-safe in-process caching with TTL
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*CacheItem
	ttl      time.Duration
	maxItems int
	stop     chan struct{}
	once     sync.Once
}

// NewCache creates a new cache with the specified TTL. maxItems <= 0 means
// unbounded.
func NewCache(ttl time.Duration, maxItems int) *Cache {
	cache := &Cache{
		items:    make(map[string]*CacheItem),
		ttl:      ttl,
		maxItems: maxItems,
		stop:     make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval(ttl))

	return cache
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

// cleanup removes expired items periodically
func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// Close stops the cleanup goroutine
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) Name() string { return "memory" }

// Get retrieves an item from the cache
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		return nil, false
	}

	return item.Data, true
}

// Set stores an item in the cache. When full, expired items are dropped first
// and then the item closest to expiry.
func (c *Cache) Set(_ context.Context, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictLocked()
	}

	c.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

func (c *Cache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
			continue
		}
		if oldestKey == "" || item.ExpiresAt.Before(oldest) {
			oldestKey, oldest = key, item.ExpiresAt
		}
	}
	if len(c.items) >= c.maxItems && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*CacheItem)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalItems := len(c.items)
	expiredItems := 0

	for _, item := range c.items {
		if item.IsExpired() {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"backend":       c.Name(),
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"max_items":     c.maxItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}
