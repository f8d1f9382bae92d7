package cache

import (
	"context"
	"sync"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
)

// InMemoryProductCache keeps resolved product info per store and article.
// Entries never expire here; callers judge freshness from Info.CachedAt.
type InMemoryProductCache struct {
	mu      sync.RWMutex
	entries map[string]product.Info
}

// NewInMemoryProductCache creates an empty product cache.
func NewInMemoryProductCache() *InMemoryProductCache {
	return &InMemoryProductCache{entries: make(map[string]product.Info)}
}

func productKey(storeID, article string) string {
	return storeID + ":" + product.NormalizeArticle(article)
}

// Get implements product.InfoCache
func (c *InMemoryProductCache) Get(_ context.Context, storeID, article string) (product.Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.entries[productKey(storeID, article)]
	return info, ok
}

// Set implements product.InfoCache
func (c *InMemoryProductCache) Set(_ context.Context, storeID, article string, info product.Info) {
	c.mu.Lock()
	c.entries[productKey(storeID, article)] = info
	c.mu.Unlock()
}

// Len returns the number of cached articles across stores.
func (c *InMemoryProductCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
