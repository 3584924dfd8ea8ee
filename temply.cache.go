package temply

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Parse cache defaults
const (
	DefaultParseCacheTTL = 30 * time.Minute
)

// ParseCache is a bounded in-memory cache of parsed templates keyed
// by a hash of their source. Parsing is deterministic, so entries
// never go stale while the tag registry is unchanged; the TTL mostly
// bounds memory for one-shot sources.
type ParseCache struct {
	mu        sync.RWMutex
	entries   map[string]*parseCacheEntry
	ttl       time.Duration
	maxSize   int
	stats     ParseCacheStats
	evictList []string
}

// parseCacheEntry holds a cached template with metadata.
type parseCacheEntry struct {
	Template  *Template
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
}

// ParseCacheStats tracks cache performance metrics.
type ParseCacheStats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	EntryCount int
}

// NewParseCache creates a parse cache with the given capacity.
func NewParseCache(maxSize int) *ParseCache {
	if maxSize <= 0 {
		maxSize = DefaultParseCacheSize
	}
	return &ParseCache{
		entries:   make(map[string]*parseCacheEntry),
		ttl:       DefaultParseCacheTTL,
		maxSize:   maxSize,
		evictList: make([]string, 0, maxSize),
	}
}

// Get retrieves a cached template if available and not expired.
func (c *ParseCache) Get(source string) (*Template, bool) {
	key := sourceKey(source)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.EntryCount = len(c.entries)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	entry.HitCount++
	c.stats.Hits++
	c.mu.Unlock()

	return entry.Template, true
}

// Put stores a parsed template.
func (c *ParseCache) Put(source string, tmpl *Template) {
	key := sourceKey(source)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &parseCacheEntry{
		Template:  tmpl,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.evictList = append(c.evictList, key)
	c.stats.EntryCount = len(c.entries)
}

// Clear removes all entries from the cache.
func (c *ParseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*parseCacheEntry)
	c.evictList = make([]string, 0, c.maxSize)
	c.stats.EntryCount = 0
}

// Stats returns current cache statistics.
func (c *ParseCache) Stats() ParseCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (c *ParseCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.stats.Hits + c.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(c.stats.Hits) / float64(total)
}

// evictOldest removes the oldest insertion.
func (c *ParseCache) evictOldest() {
	for len(c.evictList) > 0 {
		oldestKey := c.evictList[0]
		c.evictList = c.evictList[1:]

		if _, exists := c.entries[oldestKey]; exists {
			delete(c.entries, oldestKey)
			c.stats.Evictions++
			return
		}
	}
}

// sourceKey hashes template source for cache keying.
func sourceKey(source string) string {
	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:8])
}
