package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository implements supply.SettingsRepository using GORM
type GormSettingsRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db, now: time.Now}
}

var _ supply.SettingsRepository = (*GormSettingsRepository)(nil)

func (r *GormSettingsRepository) model(ctx context.Context, supplyID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.SupplySettingsModel{}).Where("supply_id = ?", supplyID)
}

// Ensure creates the settings row if absent and fills empty name and store columns.
func (r *GormSettingsRepository) Ensure(ctx context.Context, supplyID, supplyName string, store *supply.Store) (*supply.Settings, error) {
	row := models.SupplySettingsModel{
		SupplyID:     supplyID,
		SupplyName:   models.Nullable(supplyName),
		AccessMode:   string(supply.AccessHidden),
		LabelsStatus: string(supply.LabelsIdle),
	}
	if store != nil {
		row.StoreID = models.Nullable(store.ID)
		row.StoreName = models.Nullable(store.Name)
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}

	updates := map[string]any{}
	fillEmpty := func(column string, value *string) {
		if value != nil {
			updates[column] = gorm.Expr("CASE WHEN "+column+" IS NULL OR "+column+" = '' THEN ? ELSE "+column+" END", *value)
		}
	}
	fillEmpty("supply_name", row.SupplyName)
	fillEmpty("store_id", row.StoreID)
	fillEmpty("store_name", row.StoreName)
	if len(updates) > 0 {
		if err := r.model(ctx, supplyID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, supplyID)
}

// Get returns the settings of a supply or shared.ErrNotFound.
func (r *GormSettingsRepository) Get(ctx context.Context, supplyID string) (*supply.Settings, error) {
	var row models.SupplySettingsModel
	if err := r.db.WithContext(ctx).Where("supply_id = ?", supplyID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// ListVisible returns all supplies whose access mode is not hidden.
func (r *GormSettingsRepository) ListVisible(ctx context.Context) ([]supply.Settings, error) {
	var rows []models.SupplySettingsModel
	if err := r.db.WithContext(ctx).
		Where("access_mode <> ?", string(supply.AccessHidden)).
		Order("supply_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]supply.Settings, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// AccessModes returns the access mode per supply id. Unknown ids are omitted.
func (r *GormSettingsRepository) AccessModes(ctx context.Context, supplyIDs []string) (map[string]supply.AccessMode, error) {
	modes := make(map[string]supply.AccessMode, len(supplyIDs))
	if len(supplyIDs) == 0 {
		return modes, nil
	}
	var rows []models.SupplySettingsModel
	if err := r.db.WithContext(ctx).
		Select("supply_id", "access_mode").
		Where("supply_id IN ?", supplyIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		modes[row.SupplyID] = supply.AccessMode(row.AccessMode)
	}
	return modes, nil
}

// BindStore records the owning store of a supply.
func (r *GormSettingsRepository) BindStore(ctx context.Context, supplyID string, store supply.Store) error {
	return r.model(ctx, supplyID).Updates(map[string]any{
		"store_id":   store.ID,
		"store_name": store.Name,
	}).Error
}

// SetAccessMode updates the access mode of a supply.
func (r *GormSettingsRepository) SetAccessMode(ctx context.Context, supplyID string, mode supply.AccessMode) error {
	if !mode.IsValid() {
		return supply.ErrInvalidAccessMode
	}
	return r.model(ctx, supplyID).Update("access_mode", string(mode)).Error
}

// SetLabelsPrefix stores the object storage prefix of the supply's labels.
func (r *GormSettingsRepository) SetLabelsPrefix(ctx context.Context, supplyID, prefix string) error {
	return r.model(ctx, supplyID).Update("labels_prefix", prefix).Error
}

// StartLabels marks the label job as loading.
func (r *GormSettingsRepository) StartLabels(ctx context.Context, supplyID string, total, loaded int) error {
	return r.model(ctx, supplyID).Updates(map[string]any{
		"labels_status":      string(supply.LabelsLoading),
		"labels_format":      "pdf",
		"labels_total":       total,
		"labels_loaded":      min(loaded, total),
		"labels_error":       nil,
		"labels_started_at":  r.now(),
		"labels_finished_at": nil,
	}).Error
}

// UpdateLabelsLoaded stores the loaded counter, capped at the job total.
func (r *GormSettingsRepository) UpdateLabelsLoaded(ctx context.Context, supplyID string, loaded int) error {
	return r.model(ctx, supplyID).
		Update("labels_loaded", gorm.Expr("CASE WHEN ? > labels_total THEN labels_total ELSE ? END", loaded, loaded)).
		Error
}

// FinishLabels stores the final job state.
func (r *GormSettingsRepository) FinishLabels(ctx context.Context, supplyID string, state supply.LabelJobState) error {
	finished := r.now()
	if state.FinishedAt != nil {
		finished = *state.FinishedAt
	}
	return r.model(ctx, supplyID).Updates(map[string]any{
		"labels_status":      string(state.Status),
		"labels_loaded":      gorm.Expr("CASE WHEN ? > labels_total THEN labels_total ELSE ? END", state.Loaded, state.Loaded),
		"labels_error":       models.Nullable(state.Error),
		"labels_finished_at": finished,
	}).Error
}
