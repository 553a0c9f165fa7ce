package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// QueryCache remembers retrieval results per index build. Entries recorded
// against one build are never served once a different build is published.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	buildID string
	now     func() time.Time
}

type cacheEntry struct {
	results   []string
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, topK int) string {
	hash := sha256.Sum256([]byte(strconv.Itoa(topK) + "\x00" + query))
	return hex.EncodeToString(hash[:16])
}

// Get returns the cached results for query under buildID.
func (c *QueryCache) Get(buildID, query string, topK int) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buildID != c.buildID {
		c.resetLocked(buildID)
		return nil, false
	}

	key := cacheKey(query, topK)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	out := make([]string, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// Put records results for query under buildID, evicting the least
// recently used entry when full.
func (c *QueryCache) Put(buildID, query string, topK int, results []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if buildID != c.buildID {
		c.resetLocked(buildID)
	}

	stored := make([]string, len(results))
	copy(stored, results)

	key := cacheKey(query, topK)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{results: stored, timestamp: c.now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{results: stored, timestamp: c.now()}
	c.order = append(c.order, key)
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked("")
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) resetLocked(buildID string) {
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.buildID = buildID
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
