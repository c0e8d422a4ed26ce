package engine

import (
	"sync"
	"time"
)

// Cache is a TTL-bounded result cache keyed by organization id. It is an
// explicit value the caller constructs and hands to the detector; nothing in
// this package holds one globally.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result   *Result
	cachedAt time.Time
}

// DefaultCacheTTL bounds how stale a cached detection result may be.
const DefaultCacheTTL = 30 * time.Minute

// NewCache creates a cache. Non-positive TTLs select DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached result for an organization if it is still fresh.
// Expired entries are evicted on read.
func (c *Cache) Get(orgID string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[orgID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.cachedAt) > c.ttl {
		delete(c.entries, orgID)
		return nil, false
	}
	return e.result, true
}

// Put stores a result for an organization, replacing any previous entry.
func (c *Cache) Put(orgID string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[orgID] = cacheEntry{result: result, cachedAt: c.now()}
}

// Invalidate drops an organization's cached result.
func (c *Cache) Invalidate(orgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orgID)
}

// Len reports the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
