package fulfillment

import (
	"context"
	"sort"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// OrderFeed serves the order and supply lists of a store through the store's
// cache regions.
type OrderFeed struct {
	stores   *supply.Directory
	api      supply.MarketplaceAPI
	caches   *cache.Registry
	resolver *ProductResolver
	sync     *SupplySync
	settings supply.SettingsRepository
	access   supply.AccessRepository
	orders   supply.OrderRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrderFeed creates a new OrderFeed
func NewOrderFeed(
	stores *supply.Directory,
	api supply.MarketplaceAPI,
	caches *cache.Registry,
	resolver *ProductResolver,
	sync *SupplySync,
	settings supply.SettingsRepository,
	access supply.AccessRepository,
	orders supply.OrderRepository,
	logger *zap.Logger,
) *OrderFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderFeed{
		stores:   stores,
		api:      api,
		caches:   caches,
		resolver: resolver,
		sync:     sync,
		settings: settings,
		access:   access,
		orders:   orders,
		now:      time.Now,
		logger:   logger,
	}
}

// Store returns a registered store, the default one for an empty id.
func (f *OrderFeed) Store(storeID string) (supply.Store, error) {
	if storeID == "" {
		if s, ok := f.stores.Default(); ok {
			return s, nil
		}
		return supply.Store{}, supply.ErrStoreNotFound
	}
	s, ok := f.stores.Lookup(storeID)
	if !ok {
		return supply.Store{}, supply.ErrStoreNotFound
	}
	return s, nil
}

// Stores returns the registered stores.
func (f *OrderFeed) Stores() []supply.Store {
	return f.stores.All()
}

// NewOrders returns the store's orders waiting to be put into a supply,
// oldest first.
func (f *OrderFeed) NewOrders(ctx context.Context, storeID string) ([]supply.Order, error) {
	store, err := f.Store(storeID)
	if err != nil {
		return nil, err
	}
	return f.caches.For(store.ID).NewOrders.Get(ctx, func(ctx context.Context) ([]supply.Order, error) {
		raw, err := f.api.NewOrders(ctx, store)
		if err != nil {
			return nil, err
		}
		orders := f.normalize(raw)
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		})
		return f.enrich(ctx, store, orders), nil
	})
}

// Orders returns the store's orders of the last 30 days.
func (f *OrderFeed) Orders(ctx context.Context, storeID string) ([]supply.Order, error) {
	store, err := f.Store(storeID)
	if err != nil {
		return nil, err
	}
	return f.caches.For(store.ID).Orders.Get(ctx, func(ctx context.Context) ([]supply.Order, error) {
		now := f.now()
		raw, err := f.api.OrdersRange(ctx, store, now.Add(-ordersWindow), now)
		if err != nil {
			return nil, err
		}
		return f.enrich(ctx, store, f.normalize(raw)), nil
	})
}

// Supplies returns the store's open supplies with local counters, oldest first.
func (f *OrderFeed) Supplies(ctx context.Context, storeID string) ([]supply.Supply, error) {
	store, err := f.Store(storeID)
	if err != nil {
		return nil, err
	}
	return f.caches.For(store.ID).Supplies.Get(ctx, func(ctx context.Context) ([]supply.Supply, error) {
		return f.loadSupplies(ctx, store)
	})
}

// ActiveSupplyIDs returns the ids of the store's open supplies.
func (f *OrderFeed) ActiveSupplyIDs(ctx context.Context, storeID string) (map[string]struct{}, error) {
	supplies, err := f.Supplies(ctx, storeID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(supplies))
	for _, s := range supplies {
		ids[s.ID] = struct{}{}
	}
	return ids, nil
}

// PickOrders proposes up to count new orders that can ship in one supply.
func (f *OrderFeed) PickOrders(ctx context.Context, storeID string, dir supply.SortDirection, count int) (supply.Selection, error) {
	orders, err := f.NewOrders(ctx, storeID)
	if err != nil {
		return supply.Selection{}, err
	}
	return supply.PickOrders(orders, dir, count), nil
}

func (f *OrderFeed) loadSupplies(ctx context.Context, store supply.Store) ([]supply.Supply, error) {
	remote, err := f.api.Supplies(ctx, store)
	if err != nil {
		return nil, err
	}

	open := make([]supply.RemoteSupply, 0, len(remote))
	for _, r := range remote {
		if !r.Done && r.ID != "" {
			open = append(open, r)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})

	ids := make([]string, 0, len(open))
	for _, r := range open {
		if _, err := f.settings.Ensure(ctx, r.ID, r.Name, &store); err != nil {
			return nil, err
		}
		ids = append(ids, r.ID)
	}

	aggregates, err := f.orders.Aggregates(ctx, ids)
	if err != nil {
		return nil, err
	}
	modes, err := f.settings.AccessModes(ctx, ids)
	if err != nil {
		return nil, err
	}
	userCounts, err := f.access.CountBySupply(ctx, ids)
	if err != nil {
		return nil, err
	}

	supplies := make([]supply.Supply, 0, len(open))
	for _, r := range open {
		mode, ok := modes[r.ID]
		if !ok {
			mode = supply.AccessHidden
		}
		s := supply.Supply{
			ID:              r.ID,
			Name:            r.Name,
			CreatedAt:       r.CreatedAt,
			Done:            r.Done,
			StoreID:         store.ID,
			StoreName:       store.Name,
			AccessMode:      mode,
			AccessUserCount: userCounts[r.ID],
		}
		agg, ok := aggregates[r.ID]
		s.ApplyAggregate(agg)
		if !ok || agg.OrderCount == 0 {
			go f.sync.EnsureIfStale(context.WithoutCancel(ctx), r.ID, r.Name)
		}
		supplies = append(supplies, s)
	}
	return supplies, nil
}

// normalize drops rows without an order id or creation time.
func (f *OrderFeed) normalize(raw []supply.RawOrder) []supply.Order {
	orders := make([]supply.Order, 0, len(raw))
	for _, r := range raw {
		o, ok := supply.NormalizeOrder(r, "")
		if !ok || o.CreatedAt.IsZero() {
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

func (f *OrderFeed) enrich(ctx context.Context, store supply.Store, orders []supply.Order) []supply.Order {
	if len(orders) == 0 {
		return orders
	}
	infos := f.resolver.ResolveForOrders(ctx, store, orders)
	for i, o := range orders {
		if o.Article == "" {
			continue
		}
		info, ok := infos[o.Article]
		orders[i] = o.Enrich(info, ok)
	}
	return orders
}
