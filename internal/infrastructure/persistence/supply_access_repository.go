package persistence

import (
	"context"
	"slices"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccessRepository implements supply.AccessRepository using GORM
type GormAccessRepository struct {
	db *gorm.DB
}

// NewGormAccessRepository creates a new GormAccessRepository
func NewGormAccessRepository(db *gorm.DB) *GormAccessRepository {
	return &GormAccessRepository{db: db}
}

var _ supply.AccessRepository = (*GormAccessRepository)(nil)

// UserIDs returns the access users of a supply in ascending order.
func (r *GormAccessRepository) UserIDs(ctx context.Context, supplyID string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.SupplyAccessUserModel{}).
		Where("supply_id = ?", supplyID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Replace sets the access users of a supply in one transaction.
func (r *GormAccessRepository) Replace(ctx context.Context, supplyID string, userIDs []int64) error {
	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("supply_id = ?", supplyID).Delete(&models.SupplyAccessUserModel{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]models.SupplyAccessUserModel, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.SupplyAccessUserModel{SupplyID: supplyID, UserID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// SupplyIDsForUser returns the supplies a user is listed on.
func (r *GormAccessRepository) SupplyIDsForUser(ctx context.Context, userID int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.SupplyAccessUserModel{}).
		Where("user_id = ?", userID).
		Order("supply_id").
		Pluck("supply_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountBySupply returns the number of access users per supply.
func (r *GormAccessRepository) CountBySupply(ctx context.Context, supplyIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(supplyIDs))
	if len(supplyIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		SupplyID string
		Count    int
	}
	err := r.db.WithContext(ctx).
		Model(&models.SupplyAccessUserModel{}).
		Select("supply_id, COUNT(*) AS count").
		Where("supply_id IN ?", supplyIDs).
		Group("supply_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SupplyID] = row.Count
	}
	return counts, nil
}
