package fulfillment

import (
	"context"
	"slices"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"go.uber.org/zap"
)

// AccessService manages who may work on a supply and how its orders are
// distributed between employees.
type AccessService struct {
	sync     *SupplySync
	settings supply.SettingsRepository
	access   supply.AccessRepository
	orders   supply.OrderRepository
	notifier supply.Notifier
	logger   *zap.Logger
}

// NewAccessService creates a new AccessService
func NewAccessService(
	sync *SupplySync,
	settings supply.SettingsRepository,
	access supply.AccessRepository,
	orders supply.OrderRepository,
	notifier supply.Notifier,
	logger *zap.Logger,
) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		sync:     sync,
		settings: settings,
		access:   access,
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// SettingsOverview returns the admin view of a supply.
func (s *AccessService) SettingsOverview(ctx context.Context, supplyID string) (*supply.SettingsOverview, error) {
	if _, _, err := s.sync.StoreFor(ctx, supplyID, ""); err != nil {
		return nil, err
	}
	s.sync.EnsureIfStale(ctx, supplyID, "")
	return s.overview(ctx, supplyID)
}

// UpdateAccessMode switches the access mode. Leaving the selected modes drops
// the access users; leaving the split mode releases uncollected assignments.
func (s *AccessService) UpdateAccessMode(ctx context.Context, supplyID string, mode supply.AccessMode) (*supply.SettingsOverview, error) {
	if !mode.IsValid() {
		return nil, supply.ErrInvalidAccessMode
	}
	if _, _, err := s.sync.StoreFor(ctx, supplyID, ""); err != nil {
		return nil, err
	}
	s.sync.EnsureIfStale(ctx, supplyID, "")

	if err := s.settings.SetAccessMode(ctx, supplyID, mode); err != nil {
		return nil, err
	}
	if !mode.KeepsUsers() {
		if err := s.access.Replace(ctx, supplyID, nil); err != nil {
			return nil, err
		}
	}
	if !mode.KeepsAssignments() {
		if err := s.orders.ClearAssignments(ctx, supplyID, true); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Supply access mode changed", zap.String("supply_id", supplyID), zap.String("mode", mode.String()))
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return s.overview(ctx, supplyID)
}

// SetAccessUsers replaces the employees allowed on a supply.
func (s *AccessService) SetAccessUsers(ctx context.Context, supplyID string, userIDs []int64) error {
	if _, _, err := s.sync.StoreFor(ctx, supplyID, ""); err != nil {
		return err
	}
	if err := s.access.Replace(ctx, supplyID, supply.UniqueIDs(userIDs)); err != nil {
		return err
	}
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return nil
}

// ResetAccess opens the supply to everyone and drops every assignment.
func (s *AccessService) ResetAccess(ctx context.Context, supplyID string) error {
	if _, _, err := s.sync.StoreFor(ctx, supplyID, ""); err != nil {
		return err
	}
	if err := s.settings.SetAccessMode(ctx, supplyID, supply.AccessAll); err != nil {
		return err
	}
	if err := s.access.Replace(ctx, supplyID, nil); err != nil {
		return err
	}
	if err := s.orders.ClearAssignments(ctx, supplyID, false); err != nil {
		return err
	}
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return nil
}

// Split assigns the unassigned uncollected orders to the access users.
func (s *AccessService) Split(ctx context.Context, supplyID string) (*supply.DistributionResult, error) {
	return s.distribute(ctx, supplyID, supply.DistributeSplit)
}

// Redistribute releases every uncollected assignment and assigns those
// orders again.
func (s *AccessService) Redistribute(ctx context.Context, supplyID string) (*supply.DistributionResult, error) {
	return s.distribute(ctx, supplyID, supply.DistributeRedistribute)
}

func (s *AccessService) distribute(ctx context.Context, supplyID string, mode supply.DistributionMode) (*supply.DistributionResult, error) {
	if _, _, err := s.sync.StoreFor(ctx, supplyID, ""); err != nil {
		return nil, err
	}
	if err := s.sync.EnsureSnapshot(ctx, supplyID, ""); err != nil {
		return nil, err
	}
	userIDs, err := s.access.UserIDs(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, supply.ErrNoAccessUsers
	}
	if err := s.settings.SetAccessMode(ctx, supplyID, supply.AccessSelectedSplit); err != nil {
		return nil, err
	}

	if mode == supply.DistributeRedistribute {
		if err := s.orders.ClearAssignments(ctx, supplyID, true); err != nil {
			return nil, err
		}
	}
	rows, err := s.orders.List(ctx, supplyID, supply.OrderFilter{UncollectedOnly: true})
	if err != nil {
		return nil, err
	}
	candidates := make([]supply.AssignableOrder, 0, len(rows))
	for _, row := range rows {
		if mode == supply.DistributeSplit && row.AssignedUserID != nil {
			continue
		}
		candidates = append(candidates, supply.AssignableOrder{OrderID: row.OrderID, CreatedAt: row.CreatedAt})
	}

	allocations := supply.Partition(candidates, userIDs)
	for _, a := range allocations {
		if err := s.orders.Assign(ctx, supplyID, a.UserID, a.OrderIDs); err != nil {
			return nil, err
		}
	}
	result := supply.Summarize(allocations)
	if len(candidates) == 0 {
		result = supply.DistributionResult{PerUser: []supply.UserCount{}}
	}

	s.logger.Info("Supply orders distributed",
		zap.String("supply_id", supplyID),
		zap.String("mode", string(mode)),
		zap.Int("assigned", result.Assigned),
		zap.Int("users", len(userIDs)))
	s.notifier.NotifySupplyUpdate(supplyID, true)
	return &result, nil
}

func (s *AccessService) overview(ctx context.Context, supplyID string) (*supply.SettingsOverview, error) {
	settings, err := s.settings.Get(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	totals, err := s.orders.Totals(ctx, supplyID, nil)
	if err != nil {
		return nil, err
	}
	userIDs, err := s.access.UserIDs(ctx, supplyID)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress(ctx, supplyID, settings.AccessMode, userIDs)
	if err != nil {
		return nil, err
	}

	settings.LabelsTotal = settings.EffectiveLabelsTotal(totals.Total)
	if userIDs == nil {
		userIDs = []int64{}
	}
	return &supply.SettingsOverview{
		Settings:      settings,
		Totals:        totals,
		AccessUserIDs: userIDs,
		Progress:      progress,
	}, nil
}

// progress lists per-user counters. Split supplies report every access user
// with its assigned total; selected supplies report access users only;
// others report whoever collected orders.
func (s *AccessService) progress(ctx context.Context, supplyID string, mode supply.AccessMode, accessUsers []int64) ([]supply.ProgressRow, error) {
	split := mode == supply.AccessSelectedSplit
	rows, err := s.orders.Progress(ctx, supplyID, split)
	if err != nil {
		return nil, err
	}
	if !mode.RequiresMembership() || len(accessUsers) == 0 {
		return rows, nil
	}

	byUser := make(map[int64]supply.ProgressRow, len(rows))
	for _, r := range rows {
		byUser[r.UserID] = r
	}
	users := slices.Clone(accessUsers)
	slices.Sort(users)
	out := make([]supply.ProgressRow, 0, len(users))
	for _, id := range users {
		row, ok := byUser[id]
		if !ok {
			row = supply.ProgressRow{UserID: id}
			if split {
				zero := 0
				row.Total = &zero
			}
		}
		out = append(out, row)
	}
	return out, nil
}
