package fulfillment

import (
	"context"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OrderSource lists the recent orders of a store. It backs the snapshot when
// the supply's own order listing fails.
type OrderSource interface {
	Orders(ctx context.Context, storeID string) ([]supply.Order, error)
}

// SupplySync keeps the local copy of a supply's orders in step with the marketplace.
type SupplySync struct {
	stores   *supply.Directory
	api      supply.MarketplaceAPI
	settings supply.SettingsRepository
	orders   supply.OrderRepository
	resolver *ProductResolver
	fallback OrderSource
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger

	group singleflight.Group
}

// NewSupplySync creates a new SupplySync
func NewSupplySync(
	stores *supply.Directory,
	api supply.MarketplaceAPI,
	settings supply.SettingsRepository,
	orders supply.OrderRepository,
	resolver *ProductResolver,
	cfg Config,
	logger *zap.Logger,
) *SupplySync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplySync{
		stores:   stores,
		api:      api,
		settings: settings,
		orders:   orders,
		resolver: resolver,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// SetOrderSource sets the order listing used when the supply listing fails.
func (s *SupplySync) SetOrderSource(src OrderSource) {
	s.fallback = src
}

// WithClock replaces time.Now, mainly for tests.
func (s *SupplySync) WithClock(now func() time.Time) *SupplySync {
	s.now = now
	return s
}

// StoreFor returns the store owning a supply together with its settings.
// Settings are created on first reference and bound to the default store
// when they carry no store yet.
func (s *SupplySync) StoreFor(ctx context.Context, supplyID, supplyName string) (supply.Store, *supply.Settings, error) {
	settings, err := s.settings.Ensure(ctx, supplyID, supplyName, nil)
	if err != nil {
		return supply.Store{}, nil, err
	}
	store, ok := s.stores.Resolve(settings.StoreID)
	if !ok {
		return supply.Store{}, nil, supply.ErrStoreNotFound
	}
	if settings.StoreID == "" || settings.StoreName == "" {
		if err := s.settings.BindStore(ctx, supplyID, store); err != nil {
			return supply.Store{}, nil, err
		}
		settings.StoreID = store.ID
		settings.StoreName = store.Name
	}
	return store, settings, nil
}

// EnsureSnapshot synchronizes the supply's orders. Concurrent calls for the
// same supply share one run, which is not cancelled with the caller.
func (s *SupplySync) EnsureSnapshot(ctx context.Context, supplyID, supplyName string) error {
	ch := s.group.DoChan(supplyID, func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx), supplyID, supplyName)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureIfStale synchronizes the supply when it was never synced or the last
// sync is older than the sync interval. Failures are logged only.
func (s *SupplySync) EnsureIfStale(ctx context.Context, supplyID, supplyName string) {
	last, err := s.orders.LastSyncedAt(ctx, supplyID)
	if err != nil {
		s.logger.Warn("Failed to read last sync time", zap.String("supply_id", supplyID), zap.Error(err))
		return
	}
	if last != nil && s.now().Sub(*last) <= s.cfg.SyncInterval {
		return
	}
	if err := s.EnsureSnapshot(ctx, supplyID, supplyName); err != nil {
		s.logger.Warn("Stale supply sync failed", zap.String("supply_id", supplyID), zap.Error(err))
	}
}

// EnsureIfEmpty synchronizes the supply when no orders are stored for it.
func (s *SupplySync) EnsureIfEmpty(ctx context.Context, supplyID, supplyName string) error {
	n, err := s.orders.Count(ctx, supplyID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.EnsureSnapshot(ctx, supplyID, supplyName)
}

// ListSupplyOrders returns the stored orders of a supply in creation order,
// syncing first when the snapshot is stale and filling missing product info.
func (s *SupplySync) ListSupplyOrders(ctx context.Context, supplyID string) ([]supply.SupplyOrder, error) {
	store, _, err := s.StoreFor(ctx, supplyID, "")
	if err != nil {
		return nil, err
	}
	s.EnsureIfStale(ctx, supplyID, "")

	rows, err := s.orders.List(ctx, supplyID, supply.OrderFilter{})
	if err != nil {
		return nil, err
	}
	return s.fillRows(ctx, store, supplyID, rows), nil
}

func (s *SupplySync) refresh(ctx context.Context, supplyID, supplyName string) error {
	store, _, err := s.StoreFor(ctx, supplyID, supplyName)
	if err != nil {
		return err
	}
	logger := s.logger.With(zap.String("supply_id", supplyID), zap.String("store_id", store.ID))

	orders, err := s.fetchOrders(ctx, store, supplyID)
	if err != nil {
		logger.Warn("Supply orders unavailable, using the orders feed", zap.Error(err))
		orders = s.fallbackOrders(ctx, store, supplyID)
	}
	if len(orders) == 0 {
		return nil
	}

	if err := s.orders.Upsert(ctx, supplyID, orders); err != nil {
		return err
	}
	rows, err := s.orders.List(ctx, supplyID, supply.OrderFilter{})
	if err != nil {
		return err
	}
	s.fillRows(ctx, store, supplyID, rows)
	logger.Debug("Supply snapshot synced", zap.Int("orders", len(orders)))
	return nil
}

func (s *SupplySync) fetchOrders(ctx context.Context, store supply.Store, supplyID string) ([]supply.Order, error) {
	raw, err := s.api.SupplyOrders(ctx, store, supplyID)
	if err != nil {
		return nil, err
	}
	orders := make([]supply.Order, 0, len(raw))
	for _, r := range raw {
		if o, ok := supply.NormalizeOrder(r, supplyID); ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (s *SupplySync) fallbackOrders(ctx context.Context, store supply.Store, supplyID string) []supply.Order {
	if s.fallback == nil {
		return nil
	}
	all, err := s.fallback.Orders(ctx, store.ID)
	if err != nil {
		s.logger.Error("Supply snapshot fallback failed", zap.String("supply_id", supplyID), zap.Error(err))
		return nil
	}
	var orders []supply.Order
	for _, o := range all {
		if o.SupplyID == supplyID {
			orders = append(orders, o)
		}
	}
	return orders
}

// fillRows resolves names and barcodes of rows that lack them and stores the
// found values without replacing real names.
func (s *SupplySync) fillRows(ctx context.Context, store supply.Store, supplyID string, rows []supply.SupplyOrder) []supply.SupplyOrder {
	var needs []supply.Order
	for _, row := range rows {
		if o := row.ToOrder(); o.NeedsInfo() {
			needs = append(needs, o)
		}
	}
	if len(needs) == 0 {
		return rows
	}

	infos := s.resolver.ResolveForOrders(ctx, store, needs)
	var updates []supply.InfoUpdate
	for i := range rows {
		row := &rows[i]
		info, ok := infos[row.Article]
		if !ok || !row.ToOrder().NeedsInfo() {
			continue
		}
		update := supply.InfoUpdate{OrderID: row.OrderID}
		if product.IsPlaceholderName(row.ProductName, row.Article) && info.Title != "" {
			update.ProductName = info.Title
			row.ProductName = info.Title
		}
		if row.Barcode == "" && info.FirstBarcode() != "" {
			update.Barcode = info.FirstBarcode()
			row.Barcode = update.Barcode
		}
		if update.ProductName != "" || update.Barcode != "" {
			updates = append(updates, update)
		}
	}
	if err := s.orders.UpdateInfo(ctx, supplyID, updates); err != nil {
		s.logger.Warn("Failed to store product info", zap.String("supply_id", supplyID), zap.Error(err))
	}
	return rows
}
