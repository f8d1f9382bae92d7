package fulfillment

import (
	"context"
	"sync/atomic"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
)

// NameBackfill fills product names of stored supply orders that only carry
// the article. It runs as a periodic background task.
type NameBackfill struct {
	stores    *supply.Directory
	orders    supply.OrderRepository
	resolver  *ProductResolver
	batchSize int
	logger    *zap.Logger

	running atomic.Bool
}

// NewNameBackfill creates a new NameBackfill
func NewNameBackfill(stores *supply.Directory, orders supply.OrderRepository, resolver *ProductResolver, batchSize int, logger *zap.Logger) *NameBackfill {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 30
	}
	return &NameBackfill{
		stores:    stores,
		orders:    orders,
		resolver:  resolver,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Name returns the task name
func (b *NameBackfill) Name() string {
	return "product_name_backfill"
}

// Run resolves one batch of unnamed products. A run started while another is
// in progress returns immediately.
func (b *NameBackfill) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	defer b.running.Store(false)

	gaps, err := b.orders.NameGaps(ctx, b.batchSize)
	if err != nil {
		return err
	}
	if len(gaps) == 0 {
		return nil
	}

	byStore := make(map[string][]supply.NameGap)
	var storeOrder []string
	for _, gap := range gaps {
		id := gap.StoreID
		if id == "" {
			if def, ok := b.stores.Default(); ok {
				id = def.ID
			}
		}
		if _, seen := byStore[id]; !seen {
			storeOrder = append(storeOrder, id)
		}
		byStore[id] = append(byStore[id], gap)
	}

	var filled int64
	for _, storeID := range storeOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		store, ok := b.stores.Lookup(storeID)
		if !ok {
			b.logger.Debug("Skipping names of unknown store", zap.String("store_id", storeID))
			continue
		}
		group := byStore[storeID]
		orders := make([]supply.Order, 0, len(group))
		for _, gap := range group {
			orders = append(orders, supply.Order{Article: gap.Article, NmID: gap.NmID})
		}

		infos := b.resolver.ResolveForOrders(ctx, store, orders)
		for _, gap := range group {
			info, ok := infos[gap.Article]
			if !ok || info.Title == "" {
				continue
			}
			n, err := b.orders.FillNames(ctx, storeID, gap.Article, info.Title)
			if err != nil {
				b.logger.Warn("Failed to fill product names",
					zap.String("store_id", storeID),
					zap.String("article", gap.Article),
					zap.Error(err))
				continue
			}
			filled += n
		}
	}

	if filled > 0 {
		b.logger.Info("Product names backfilled", zap.Int64("orders", filled), zap.Int("products", len(gaps)))
	}
	return nil
}
