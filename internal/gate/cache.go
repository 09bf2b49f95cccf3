package gate

import (
	"sync"
	"time"

	"github.com/solsentinel/pixelterm/internal/models"
)

type cacheEntry struct {
	result   models.GenerationResult
	storedAt time.Time
}

// ResultCache is a size-bounded TTL cache for generation results, keyed by
// normalized prompt. When full it evicts the globally oldest entry by store
// time (FIFO by age, not LRU: a cache hit does not refresh an entry's age).
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

func NewResultCache(ttl time.Duration, capacity int) *ResultCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if capacity <= 0 {
		capacity = 20
	}
	return &ResultCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached result for key if present and not expired. Expired
// entries are dropped on access.
func (c *ResultCache) Get(key string) (models.GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return models.GenerationResult{}, false
	}
	if c.now().Sub(ent.storedAt) > c.ttl {
		delete(c.entries, key)
		return models.GenerationResult{}, false
	}
	return ent.result, true
}

// Set stores a result, evicting the oldest entry when over capacity.
func (c *ResultCache) Set(key string, result models.GenerationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = cacheEntry{result: result, storedAt: c.now()}
}

func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, ent := range c.entries {
		if oldestKey == "" || ent.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = ent.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len reports the current number of entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
