package fulfillment

import (
	"context"
	"errors"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
)

// supplyGate applies supply visibility rules to employees.
type supplyGate struct {
	settings supply.SettingsRepository
	access   supply.AccessRepository
	feed     *OrderFeed
	logger   *zap.Logger
}

// open returns the settings and access users of a supply the actor may work on.
func (g supplyGate) open(ctx context.Context, actor supply.Actor, supplyID string) (*supply.Settings, []int64, error) {
	settings, err := g.settings.Get(ctx, supplyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, supply.ErrSupplyUnavailable
		}
		return nil, nil, err
	}

	var accessUsers []int64
	if settings.AccessMode.RequiresMembership() {
		if accessUsers, err = g.access.UserIDs(ctx, supplyID); err != nil {
			return nil, nil, err
		}
	}
	if err := supply.CheckAccess(settings, actor, accessUsers, nil); err != nil {
		return nil, nil, err
	}
	return settings, accessUsers, nil
}

// active rejects supplies that are no longer open in their store. A supply
// without a recorded store, or whose store cannot list its open supplies, is
// treated as open.
func (g supplyGate) active(ctx context.Context, settings *supply.Settings) error {
	if settings.StoreID == "" {
		return nil
	}
	ids, err := g.feed.ActiveSupplyIDs(ctx, settings.StoreID)
	if err != nil {
		g.logger.Debug("Active supplies unavailable, skipping check",
			zap.String("supply_id", settings.SupplyID),
			zap.Error(err))
		return nil
	}
	if _, ok := ids[settings.SupplyID]; !ok {
		return supply.ErrSupplyUnavailable
	}
	return nil
}
