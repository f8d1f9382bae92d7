package fulfillment

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/cache"
	"go.uber.org/zap"
)

const maxSupplyNameRunes = 128

// SupplyCreator creates supplies on the marketplace and fills them with orders.
type SupplyCreator struct {
	feed     *OrderFeed
	api      supply.MarketplaceAPI
	settings supply.SettingsRepository
	sync     *SupplySync
	caches   *cache.Registry
	notifier supply.Notifier
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewSupplyCreator creates a new SupplyCreator
func NewSupplyCreator(
	feed *OrderFeed,
	api supply.MarketplaceAPI,
	settings supply.SettingsRepository,
	sync *SupplySync,
	caches *cache.Registry,
	notifier supply.Notifier,
	cfg Config,
	logger *zap.Logger,
) *SupplyCreator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplyCreator{
		feed:     feed,
		api:      api,
		settings: settings,
		sync:     sync,
		caches:   caches,
		notifier: notifier,
		cfg:      cfg,
		sleep:    sleepContext,
		logger:   logger,
	}
}

// CreateSupply creates a supply named name in the store and adds the orders.
// Orders the marketplace rejects are isolated by bisecting the failing batch;
// the rest are added. Local bookkeeping after the remote calls is best-effort.
// When ctx ends between batches the orders not yet sent are reported as
// failed and the supply is still recorded and announced.
func (c *SupplyCreator) CreateSupply(ctx context.Context, storeID, name string, orderIDs []int64) (*supply.CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxSupplyNameRunes {
		return nil, supply.ErrInvalidSupplyName
	}
	ids := supply.UniqueIDs(orderIDs)
	if len(ids) == 0 || (c.cfg.MaxCreateCount > 0 && len(ids) > c.cfg.MaxCreateCount) {
		return nil, supply.ErrInvalidOrderCount
	}
	store, err := c.feed.Store(storeID)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With(zap.String("store_id", store.ID))

	legacy := false
	supplyID, err := c.api.CreateSupply(ctx, store, name, false)
	if err != nil {
		logger.Warn("Supply creation failed, retrying the legacy endpoint", zap.Error(err))
		legacy = true
		supplyID, err = c.api.CreateSupply(ctx, store, name, true)
		if err != nil {
			return nil, err
		}
	}
	supplyID = strings.TrimSpace(supplyID)
	if supplyID == "" {
		return nil, supply.ErrSupplyNotCreated
	}
	logger = logger.With(zap.String("supply_id", supplyID))

	addBatch := func(ctx context.Context, batch []int64) error {
		if legacy {
			return c.api.AddOrders(ctx, store, supplyID, batch, true)
		}
		if err := c.api.AddOrders(ctx, store, supplyID, batch, false); err == nil {
			return nil
		}
		if err := c.api.AddOrders(ctx, store, supplyID, batch, true); err != nil {
			return err
		}
		legacy = true
		return nil
	}

	bisector := supply.Bisector{IsolateFailures: true, MinBatchSize: 1}
	var outcome supply.BatchOutcome
	batches := supply.ChunkIDs(ids, c.cfg.OrderBatchSize)
	var interrupted error
	for i, batch := range batches {
		outcome.Merge(bisector.Run(ctx, batch, addBatch))
		if i == len(batches)-1 {
			break
		}
		if err := c.sleep(ctx, c.cfg.AddBatchPause); err != nil {
			interrupted = err
			for _, rest := range batches[i+1:] {
				for _, id := range rest {
					outcome.Failed = append(outcome.Failed, supply.FailedItem{ID: id, Reason: err.Error()})
				}
			}
			logger.Warn("Supply filling interrupted", zap.Int("added", len(outcome.Added)), zap.Error(err))
			break
		}
	}

	// The supply exists remotely, so local bookkeeping outlives the caller.
	bookCtx := context.WithoutCancel(ctx)
	if _, err := c.settings.Ensure(bookCtx, supplyID, name, &store); err != nil {
		logger.Warn("Failed to store settings of the new supply", zap.Error(err))
	} else if interrupted == nil {
		if err := c.sync.EnsureSnapshot(ctx, supplyID, name); err != nil {
			logger.Warn("Snapshot of the new supply failed", zap.Error(err))
		}
	}
	c.caches.For(store.ID).InvalidateLists()
	c.notifier.NotifySupplyUpdate(supplyID, true)

	result := &supply.CreateResult{
		SupplyID:    supplyID,
		AddedCount:  len(outcome.Added),
		FailedCount: len(outcome.Failed),
		FailedIDs:   make([]int64, 0, min(len(outcome.Failed), maxFailedIDs)),
	}
	for _, f := range outcome.Failed[:min(len(outcome.Failed), maxFailedIDs)] {
		result.FailedIDs = append(result.FailedIDs, f.ID)
	}
	if len(outcome.Failed) > 0 {
		result.FailedReason = outcome.Failed[0].Reason
	}
	logger.Info("Supply created",
		zap.Int("added", result.AddedCount),
		zap.Int("failed", result.FailedCount),
		zap.Bool("legacy", legacy))
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
