package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// ResultCache holds serialized search result pages in a size-bounded LRU.
// It supports only wholesale invalidation: pages are never partially
// recomputed, so any catalog change clears the whole cache.
type ResultCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// resultItem wraps the page data with its expiration time.
type resultItem struct {
	data      []byte
	expiresAt time.Time
}

// NewResultCache creates a result cache bounded to maxEntries pages, each
// expiring after ttl.
func NewResultCache(maxEntries int64, ttl time.Duration) (*ResultCache, error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &ResultCache{cache: cache, ttl: ttl}, nil
}

// Get retrieves a cached page by query signature key.
func (c *ResultCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*resultItem)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		c.cache.Del(key)
		return nil, false
	}

	return item.data, true
}

// Set stores a page under the query signature key. Each page costs one
// entry regardless of byte size.
func (c *ResultCache) Set(key string, value []byte) {
	item := &resultItem{
		data:      value,
		expiresAt: time.Now().Add(c.ttl),
	}
	_ = c.cache.Set(key, item, 1)
	// Wait for the value to pass through ristretto's buffers so a search
	// immediately following a populate sees the cached page.
	c.cache.Wait()
}

// Clear drops every cached page.
func (c *ResultCache) Clear() {
	c.cache.Clear()
}

// Stats returns hit/miss counters from ristretto's metrics.
func (c *ResultCache) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:   m.Hits(),
		Misses: m.Misses(),
		Sets:   m.KeysAdded(),
		Items:  int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close releases cache resources.
func (c *ResultCache) Close() {
	c.cache.Close()
}
