package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/perchlabs/perch/internal/domain"
)

// Defaults match the reference deployment.
const (
	DefaultTTL     = 300 * time.Second
	DefaultMaxSize = 100
)

type entry struct {
	results []domain.SearchResult
	created time.Time
}

// Cache is a bounded TTL cache for ranked search results, keyed by the
// canonicalized (query, k, filters) tuple. Expired entries are evicted
// lazily on access; inserting at capacity evicts the single oldest entry.
// The lock covers map access only — never the encode or rank steps — so
// eviction order under concurrent writes is approximate.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache. Non-positive maxSize or ttl fall back to defaults.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives a deterministic cache key from the normalized query text and
// the full filter tuple.
func (c *Cache) Key(query string, k int, f domain.Filters) string {
	year := ""
	if f.Year != 0 {
		year = fmt.Sprintf("%d", f.Year)
	}
	raw := fmt.Sprintf("%s|%d|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(query)), k, f.College, year, f.Major)
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Get returns the cached results for key. An entry older than TTL is
// treated as a miss and removed.
func (c *Cache) Get(key string) ([]domain.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.created) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.results, true
}

// Put stores results under key, evicting the globally oldest entry first
// when the cache is at capacity.
func (c *Cache) Put(key string, results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{results: results, created: c.now()}
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.created.Before(oldest) {
			oldestKey, oldest = k, e.created
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Stats reports current size and configuration.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	return domain.CacheStats{
		Size:       size,
		MaxSize:    c.maxSize,
		TTLSeconds: int(c.ttl / time.Second),
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry, c.maxSize)
	c.mu.Unlock()
}
