package fulfillment

import (
	"context"
	"slices"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
)

// OrderQuery narrows the orders listed for an employee. Empty fields match anything.
type OrderQuery struct {
	Article string
	Barcode string
	NmID    *int64
}

func (q OrderQuery) matches(o supply.SupplyOrder) bool {
	if q.Article != "" && o.Article != q.Article {
		return false
	}
	if q.Barcode != "" && o.Barcode != q.Barcode {
		return false
	}
	if q.NmID != nil && (o.NmID == nil || *o.NmID != *q.NmID) {
		return false
	}
	return true
}

// EmployeeService serves the supply views of warehouse employees.
type EmployeeService struct {
	sync     *SupplySync
	gate     supplyGate
	stores   *supply.Directory
	settings supply.SettingsRepository
	access   supply.AccessRepository
	orders   supply.OrderRepository
	logger   *zap.Logger
}

// NewEmployeeService creates a new EmployeeService
func NewEmployeeService(
	sync *SupplySync,
	feed *OrderFeed,
	stores *supply.Directory,
	settings supply.SettingsRepository,
	access supply.AccessRepository,
	orders supply.OrderRepository,
	logger *zap.Logger,
) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{
		sync:     sync,
		gate:     supplyGate{settings: settings, access: access, feed: feed, logger: logger},
		stores:   stores,
		settings: settings,
		access:   access,
		orders:   orders,
		logger:   logger,
	}
}

// ListSupplies returns the open supplies the actor may work on that still
// have uncollected orders. Split supplies count only the actor's orders.
func (s *EmployeeService) ListSupplies(ctx context.Context, actor supply.Actor) ([]supply.EmployeeSupply, error) {
	visible, err := s.settings.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]supply.EmployeeSupply, 0, len(visible))
	if len(visible) == 0 {
		return out, nil
	}

	allowed, err := s.access.SupplyIDsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	for i := range visible {
		settings := &visible[i]
		if err := s.gate.active(ctx, settings); err != nil {
			continue
		}
		if settings.AccessMode.RequiresMembership() && !slices.Contains(allowed, settings.SupplyID) {
			continue
		}

		var assignedTo *int64
		if settings.AccessMode == supply.AccessSelectedSplit {
			assignedTo = &actor.UserID
		}
		totals, err := s.orders.Totals(ctx, settings.SupplyID, assignedTo)
		if err != nil {
			return nil, err
		}
		if totals.Remaining < 1 {
			continue
		}

		storeName := settings.StoreName
		if storeName == "" {
			if store, ok := s.stores.Lookup(settings.StoreID); ok {
				storeName = store.Name
			}
		}
		out = append(out, supply.EmployeeSupply{
			ID:         settings.SupplyID,
			Name:       settings.SupplyName,
			AccessMode: settings.AccessMode,
			StoreID:    settings.StoreID,
			StoreName:  storeName,
			Total:      totals.Total,
			Collected:  totals.Collected,
			Remaining:  totals.Remaining,
		})
	}
	return out, nil
}

// Items groups the uncollected orders of a supply by product, largest groups first.
func (s *EmployeeService) Items(ctx context.Context, actor supply.Actor, supplyID string) ([]supply.ItemGroup, error) {
	settings, err := s.enter(ctx, actor, supplyID)
	if err != nil {
		return nil, err
	}
	var assignedTo *int64
	if settings.AccessMode == supply.AccessSelectedSplit {
		assignedTo = &actor.UserID
	}
	return s.orders.ItemGroups(ctx, supplyID, assignedTo)
}

// Orders lists the uncollected orders of a supply visible to the actor, oldest first.
func (s *EmployeeService) Orders(ctx context.Context, actor supply.Actor, supplyID string, query OrderQuery) ([]supply.SupplyOrder, error) {
	settings, err := s.enter(ctx, actor, supplyID)
	if err != nil {
		return nil, err
	}
	store, _, err := s.sync.StoreFor(ctx, supplyID, settings.SupplyName)
	if err != nil {
		return nil, err
	}

	filter := supply.OrderFilter{UncollectedOnly: true}
	if settings.AccessMode == supply.AccessSelectedSplit {
		filter.AssignedTo = &actor.UserID
	}
	rows, err := s.orders.List(ctx, supplyID, filter)
	if err != nil {
		return nil, err
	}

	query.Article = product.NormalizeArticle(query.Article)
	query.Barcode = product.NormalizeBarcode(query.Barcode)
	matched := rows[:0]
	for _, row := range rows {
		if query.matches(row) {
			matched = append(matched, row)
		}
	}
	return s.sync.fillRows(ctx, store, supplyID, matched), nil
}

// enter checks the actor's access to a supply and syncs it on first use.
func (s *EmployeeService) enter(ctx context.Context, actor supply.Actor, supplyID string) (*supply.Settings, error) {
	settings, _, err := s.gate.open(ctx, actor, supplyID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.active(ctx, settings); err != nil {
		return nil, err
	}
	if err := s.sync.EnsureIfEmpty(ctx, supplyID, settings.SupplyName); err != nil {
		return nil, err
	}
	return settings, nil
}
