// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     cache
// Description: Thread-safe in-memory TTL cache backing market data reads
// ============================================================================

package cache

import (
	"sync"
	"time"
)

// Entry represents a cached item with expiration
type Entry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the entry has expired
func (e *Entry) IsExpired() bool {
	if e.Expiration.IsZero() {
		return false // Never expires
	}
	return time.Now().After(e.Expiration)
}

// Cache is a thread-safe in-memory cache with TTL support. It is the only
// cache backend of the platform; market data latency targets are met by
// TTLs tuned per data kind, not by an external store.
type Cache struct {
	mu       sync.RWMutex
	items    map[string]*Entry
	maxItems int
	ttl      time.Duration

	hits   int64
	misses int64

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Config holds cache configuration
type Config struct {
	MaxItems int
	TTL      time.Duration
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxItems: 10000,
		TTL:      time.Minute,
	}
}

// New creates a new cache instance and starts its cleanup loop
func New(cfg Config) *Cache {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}

	c := &Cache{
		items:       make(map[string]*Entry),
		maxItems:    cfg.MaxItems,
		ttl:         cfg.TTL,
		stopCleanup: make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Close stops the background cleanup loop
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Get retrieves a value from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	if entry.IsExpired() {
		c.mu.Lock()
		delete(c.items, key)
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.Value, true
}

// GetMany retrieves multiple keys at once. Missing or expired keys are
// omitted from the result.
func (c *Cache) GetMany(keys []string) map[string]interface{} {
	result := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		if val, ok := c.Get(key); ok {
			result[key] = val
		}
	}
	return result
}

// Set stores a value in the cache with the default TTL
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evictOldest()
	}

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}

	c.items[key] = &Entry{
		Value:      value,
		Expiration: exp,
	}
}

// SetMany stores multiple values with the same TTL
func (c *Cache) SetMany(values map[string]interface{}, ttl time.Duration) {
	for key, value := range values {
		c.SetWithTTL(key, value, ttl)
	}
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*Entry)
}

// Size returns the number of items in the cache
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns cache statistics for health reporting
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"backend":  "memory",
		"keys":     len(c.items),
		"hits":     c.hits,
		"misses":   c.misses,
		"hit_rate": hitRate,
	}
}

// GetOrSet atomically gets a value or computes and stores it with a TTL
func (c *Cache) GetOrSet(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}

	c.SetWithTTL(key, val, ttl)
	return val, nil
}

// evictOldest removes the entry closest to expiration (lock must be
// held). Entries with a zero Expiration never expire and are only
// evicted when no expiring entry exists.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	var fallbackKey string

	for key, entry := range c.items {
		if entry.Expiration.IsZero() {
			if fallbackKey == "" {
				fallbackKey = key
			}
			continue
		}
		if oldestKey == "" || entry.Expiration.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.Expiration
		}
	}

	if oldestKey == "" {
		oldestKey = fallbackKey
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// cleanupLoop periodically removes expired entries
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.items {
		if entry.IsExpired() {
			delete(c.items, key)
		}
	}
}
