package cache

import (
	"sync"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/config"
)

// Region names, also used as metric labels.
const (
	RegionNewOrders = "new_orders"
	RegionOrders    = "orders"
	RegionSupplies  = "supplies"
)

const defaultStoreKey = "default"

// StoreCache holds every cache of one store.
type StoreCache struct {
	StoreID   string
	NewOrders *Region[[]supply.Order]
	Orders    *Region[[]supply.Order]
	Supplies  *Region[[]supply.Supply]
	Products  product.InfoCache
	Catalog   *CatalogCache
	Backoff   *Backoff
}

// InvalidateLists marks the order and supply lists stale.
func (s *StoreCache) InvalidateLists() {
	s.NewOrders.Invalidate()
	s.Orders.Invalidate()
	s.Supplies.Invalidate()
}

// Registry creates store caches on first use and keeps them for the process lifetime.
type Registry struct {
	cfg      config.CacheConfig
	products product.InfoCache
	opts     []Option

	mu     sync.Mutex
	stores map[string]*StoreCache
}

// NewRegistry creates a registry. products is shared by all stores; its keys
// include the store id.
func NewRegistry(cfg config.CacheConfig, products product.InfoCache, opts ...Option) *Registry {
	if products == nil {
		products = NewInMemoryProductCache()
	}
	return &Registry{
		cfg:      cfg,
		products: products,
		opts:     opts,
		stores:   make(map[string]*StoreCache),
	}
}

// For returns the cache of a store, creating it on first use.
// An empty id maps to a shared default entry.
func (r *Registry) For(storeID string) *StoreCache {
	key := supply.NormalizeStoreID(storeID)
	if key == "" {
		key = defaultStoreKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, ok := r.stores[key]; ok {
		return sc
	}

	snapshotPath := ""
	if r.cfg.CacheDir != "" {
		snapshotPath = SnapshotPath(r.cfg.CacheDir, key)
	}
	sc := &StoreCache{
		StoreID:   key,
		NewOrders: NewRegion[[]supply.Order](RegionNewOrders, r.cfg.NewOrdersTTL, r.opts...),
		Orders:    NewRegion[[]supply.Order](RegionOrders, r.cfg.OrdersTTL, r.opts...),
		Supplies:  NewRegion[[]supply.Supply](RegionSupplies, r.cfg.SuppliesTTL, r.opts...),
		Products:  r.products,
		Catalog:   NewCatalogCache(snapshotPath, r.cfg.CatalogTTL, r.opts...),
		Backoff:   NewBackoff(r.opts...),
	}
	r.stores[key] = sc
	return sc
}

// WarmLoad loads the catalog snapshots of the given stores from disk.
// Failures are returned per store and do not stop the others.
func (r *Registry) WarmLoad(storeIDs []string) map[string]error {
	failed := make(map[string]error)
	for _, id := range storeIDs {
		if err := r.For(id).Catalog.WarmLoad(); err != nil {
			failed[id] = err
		}
	}
	return failed
}
