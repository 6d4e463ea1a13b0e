// Package cache provides a small in-memory TTL cache.
package cache

import (
	"sync"
	"time"
)

// Stats provides cache performance metrics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Deletes   int64   `json:"deletes"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Config holds cache configuration
type Config struct {
	// MaxItems is the maximum number of items to store
	MaxItems int
	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration
}

// DefaultConfig returns a reasonable default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxItems:   1000,
		DefaultTTL: 5 * time.Minute,
	}
}

type item[V any] struct {
	value      V
	expiresAt  time.Time
	lastAccess time.Time
}

// Memory is a mutex-guarded map with per-entry expiry. Expired entries are
// dropped lazily on access and before evicting live ones.
type Memory[V any] struct {
	mu     sync.Mutex
	items  map[string]*item[V]
	config Config
	stats  Stats
	now    func() time.Time
}

// NewMemory creates a new in-memory cache
func NewMemory[V any](config Config) *Memory[V] {
	defaults := DefaultConfig()
	if config.MaxItems <= 0 {
		config.MaxItems = defaults.MaxItems
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaults.DefaultTTL
	}
	return &Memory[V]{
		items:  make(map[string]*item[V]),
		config: config,
		now:    time.Now,
	}
}

// SetClock replaces the time source, for tests
func (c *Memory[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get retrieves a live value from the cache
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	now := c.now()
	if !now.Before(it.expiresAt) {
		delete(c.items, key)
		c.stats.Misses++
		c.stats.Evictions++
		return zero, false
	}

	it.lastAccess = now
	c.stats.Hits++
	return it.value, true
}

// Set stores value under key. A zero ttl uses the configured default.
func (c *Memory[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.config.MaxItems {
		c.purgeExpired(now)
		if len(c.items) >= c.config.MaxItems {
			c.evictOldest()
		}
	}

	c.items[key] = &item[V]{value: value, expiresAt: now.Add(ttl), lastAccess: now}
	c.stats.Sets++
}

// Delete removes key if present
func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		delete(c.items, key)
		c.stats.Deletes++
	}
}

// Clear removes all values from the cache
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item[V])
}

// Size returns the number of stored items, expired or not
func (c *Memory[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a copy of the counters
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.items)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *Memory[V]) purgeExpired(now time.Time) {
	for key, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, key)
			c.stats.Evictions++
		}
	}
}

// evictOldest removes the least recently accessed item
func (c *Memory[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, it := range c.items {
		if oldestKey == "" || it.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = it.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.stats.Evictions++
	}
}
