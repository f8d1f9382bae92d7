package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

// coalescedColumns are refreshed on re-sync only when the incoming value is not NULL.
var coalescedColumns = []string{
	"created_at", "article", "barcode", "product_name", "nm_id", "quantity", "warehouse_id", "cargo_type",
}

// placeholderNameSQL matches rows whose product name still has to be resolved.
// alias qualifies the columns when the orders table is aliased in a join.
func placeholderNameSQL(alias string) string {
	name, article := "product_name", "article"
	if alias != "" {
		name, article = alias+"."+name, alias+"."+article
	}
	return "(" + name + " IS NULL OR " + name + " = '' OR LOWER(" + name + ") = LOWER(" + article + "))"
}

// GormOrderRepository implements supply.OrderRepository using GORM
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db, now: time.Now}
}

var _ supply.OrderRepository = (*GormOrderRepository)(nil)

func (r *GormOrderRepository) rows(ctx context.Context, supplyID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.SupplyOrderModel{}).Where("supply_id = ?", supplyID)
}

// Upsert inserts or refreshes orders of a supply. A stored value is never
// replaced by NULL; synced_at is always bumped.
func (r *GormOrderRepository) Upsert(ctx context.Context, supplyID string, orders []supply.Order) error {
	if len(orders) == 0 {
		return nil
	}
	syncedAt := r.now()
	rows := make([]models.SupplyOrderModel, 0, len(orders))
	for _, o := range orders {
		var m models.SupplyOrderModel
		m.FromOrder(supplyID, o, syncedAt)
		rows = append(rows, m)
	}

	set := make(clause.Set, 0, len(coalescedColumns)+1)
	for _, col := range coalescedColumns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr("COALESCE(excluded." + col + ", supply_orders." + col + ")"),
		})
	}
	set = append(set, clause.Assignment{Column: clause.Column{Name: "synced_at"}, Value: gorm.Expr("excluded.synced_at")})

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "supply_id"}, {Name: "order_id"}},
			DoUpdates: set,
		}).
		CreateInBatches(&rows, upsertBatchSize).Error
}

// LastSyncedAt returns the most recent sync time of the supply's rows, or nil.
func (r *GormOrderRepository) LastSyncedAt(ctx context.Context, supplyID string) (*time.Time, error) {
	var rows []models.SupplyOrderModel
	err := r.rows(ctx, supplyID).
		Select("supply_id", "order_id", "synced_at").
		Where("synced_at IS NOT NULL").
		Order("synced_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].SyncedAt, nil
}

// Count returns the number of rows of a supply.
func (r *GormOrderRepository) Count(ctx context.Context, supplyID string) (int64, error) {
	var n int64
	err := r.rows(ctx, supplyID).Count(&n).Error
	return n, err
}

// List returns the orders of a supply.
func (r *GormOrderRepository) List(ctx context.Context, supplyID string, filter supply.OrderFilter) ([]supply.SupplyOrder, error) {
	q := r.rows(ctx, supplyID)
	if filter.UncollectedOnly {
		q = q.Where("collected_at IS NULL")
	}
	if filter.AssignedTo != nil {
		q = q.Where("assigned_user_id = ?", *filter.AssignedTo)
	}
	if filter.OrderByID {
		q = q.Order("order_id")
	} else {
		q = q.Order("created_at").Order("order_id")
	}

	var rows []models.SupplyOrderModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]supply.SupplyOrder, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Get returns one order of a supply or supply.ErrOrderNotFound.
func (r *GormOrderRepository) Get(ctx context.Context, supplyID string, orderID int64) (*supply.SupplyOrder, error) {
	var row models.SupplyOrderModel
	err := r.db.WithContext(ctx).
		Where("supply_id = ? AND order_id = ?", supplyID, orderID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, supply.ErrOrderNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// UpdateInfo writes backfilled names and barcodes. A barcode is only set when
// the row has none.
func (r *GormOrderRepository) UpdateInfo(ctx context.Context, supplyID string, updates []supply.InfoUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			values := map[string]any{}
			if u.ProductName != "" {
				values["product_name"] = u.ProductName
			}
			if u.Barcode != "" {
				values["barcode"] = gorm.Expr("CASE WHEN barcode IS NULL OR barcode = '' THEN ? ELSE barcode END", u.Barcode)
			}
			if len(values) == 0 {
				continue
			}
			err := tx.Model(&models.SupplyOrderModel{}).
				Where("supply_id = ? AND order_id = ?", supplyID, u.OrderID).
				Updates(values).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveScanProgress persists the scan, label scan and collection columns of an order.
func (r *GormOrderRepository) SaveScanProgress(ctx context.Context, order *supply.SupplyOrder) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplyOrderModel{}).
		Where("supply_id = ? AND order_id = ?", order.SupplyID, order.OrderID).
		Updates(map[string]any{
			"scan_passed_at":       order.ScanPassedAt,
			"scan_passed_by":       order.ScanPassedBy,
			"scan_barcode":         models.Nullable(order.ScanBarcode),
			"label_scan_passed_at": order.LabelScanPassedAt,
			"label_scan_passed_by": order.LabelScanPassedBy,
			"label_scan_barcode":   models.Nullable(order.LabelScanBarcode),
			"collected_at":         order.CollectedAt,
			"collected_by":         order.CollectedBy,
			"collected_via":        models.Nullable(order.CollectedVia),
		}).Error
}

// SetStickerBarcode caches the expected label barcode of an order.
func (r *GormOrderRepository) SetStickerBarcode(ctx context.Context, supplyID string, orderID int64, barcode string) error {
	return r.rows(ctx, supplyID).Where("order_id = ?", orderID).Update("sticker_barcode", barcode).Error
}

// RecordSticker stores an uploaded label and clears a previous error.
func (r *GormOrderRepository) RecordSticker(ctx context.Context, supplyID string, rec supply.StickerRecord) error {
	values := map[string]any{
		"sticker_url":       rec.URL,
		"sticker_key":       rec.Key,
		"sticker_error":     nil,
		"sticker_loaded_at": r.now(),
	}
	if rec.Barcode != "" {
		values["sticker_barcode"] = rec.Barcode
	}
	return r.rows(ctx, supplyID).Where("order_id = ?", rec.OrderID).Updates(values).Error
}

// RecordStickerError stores the reason a label could not be produced.
func (r *GormOrderRepository) RecordStickerError(ctx context.Context, supplyID string, orderID int64, message string) error {
	return r.rows(ctx, supplyID).Where("order_id = ?", orderID).Update("sticker_error", message).Error
}

// ClearAssignments removes assignments of a supply, optionally only of uncollected orders.
func (r *GormOrderRepository) ClearAssignments(ctx context.Context, supplyID string, uncollectedOnly bool) error {
	q := r.rows(ctx, supplyID)
	if uncollectedOnly {
		q = q.Where("collected_at IS NULL")
	}
	return q.Updates(map[string]any{"assigned_user_id": nil, "assigned_at": nil}).Error
}

// Assign gives orders to a user.
func (r *GormOrderRepository) Assign(ctx context.Context, supplyID string, userID int64, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	at := r.now()
	for start := 0; start < len(orderIDs); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(orderIDs))
		err := r.rows(ctx, supplyID).
			Where("order_id IN ?", orderIDs[start:end]).
			Updates(map[string]any{"assigned_user_id": userID, "assigned_at": at}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// itemKeySQL identifies a distinct product within a supply.
const itemKeySQL = "COALESCE(product_name, '') || '|' || COALESCE(barcode, '') || '|' || COALESCE(article, '') || '|' || COALESCE(CAST(nm_id AS TEXT), '')"

// Aggregates returns counters per supply. Supplies without rows are omitted.
func (r *GormOrderRepository) Aggregates(ctx context.Context, supplyIDs []string) (map[string]supply.Aggregate, error) {
	out := make(map[string]supply.Aggregate, len(supplyIDs))
	if len(supplyIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		SupplyID       string
		OrderCount     int
		CollectedCount int
		ItemCount      int
		AssignedUsers  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.SupplyOrderModel{}).
		Select("supply_id, " +
			"COUNT(*) AS order_count, " +
			"SUM(CASE WHEN collected_at IS NOT NULL THEN 1 ELSE 0 END) AS collected_count, " +
			"COUNT(DISTINCT " + itemKeySQL + ") AS item_count, " +
			"COUNT(DISTINCT assigned_user_id) AS assigned_users").
		Where("supply_id IN ?", supplyIDs).
		Group("supply_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SupplyID] = supply.Aggregate{
			OrderCount:     row.OrderCount,
			CollectedCount: row.CollectedCount,
			ItemCount:      row.ItemCount,
			AssignedUsers:  row.AssignedUsers,
		}
	}
	return out, nil
}

// Totals counts orders of a supply, optionally only those assigned to a user.
func (r *GormOrderRepository) Totals(ctx context.Context, supplyID string, assignedTo *int64) (supply.Totals, error) {
	q := r.rows(ctx, supplyID)
	if assignedTo != nil {
		q = q.Where("assigned_user_id = ?", *assignedTo)
	}
	var row struct {
		Total     int
		Collected int
	}
	err := q.Select("COUNT(*) AS total, " +
		"COALESCE(SUM(CASE WHEN collected_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS collected").
		Scan(&row).Error
	if err != nil {
		return supply.Totals{}, err
	}
	return supply.Totals{
		Total:     row.Total,
		Collected: row.Collected,
		Remaining: max(0, row.Total-row.Collected),
	}, nil
}

// Progress returns per-user progress. Split supplies count assigned orders;
// other supplies count collected orders per collector.
func (r *GormOrderRepository) Progress(ctx context.Context, supplyID string, split bool) ([]supply.ProgressRow, error) {
	var rows []struct {
		UserID    int64
		Total     int
		Collected int
	}
	q := r.rows(ctx, supplyID)
	if split {
		q = q.Select("assigned_user_id AS user_id, COUNT(*) AS total, " +
			"SUM(CASE WHEN collected_at IS NOT NULL THEN 1 ELSE 0 END) AS collected").
			Where("assigned_user_id IS NOT NULL").
			Group("assigned_user_id").
			Order("assigned_user_id")
	} else {
		q = q.Select("collected_by AS user_id, COUNT(*) AS collected").
			Where("collected_at IS NOT NULL AND collected_by IS NOT NULL").
			Group("collected_by").
			Order("collected_by")
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]supply.ProgressRow, 0, len(rows))
	for _, row := range rows {
		p := supply.ProgressRow{UserID: row.UserID, Collected: row.Collected}
		if split {
			total := row.Total
			p.Total = &total
		}
		out = append(out, p)
	}
	return out, nil
}

// ItemGroups counts uncollected orders per product, largest groups first.
func (r *GormOrderRepository) ItemGroups(ctx context.Context, supplyID string, assignedTo *int64) ([]supply.ItemGroup, error) {
	q := r.rows(ctx, supplyID).Where("collected_at IS NULL")
	if assignedTo != nil {
		q = q.Where("assigned_user_id = ?", *assignedTo)
	}
	var rows []struct {
		Article     *string
		Barcode     *string
		ProductName *string
		NmID        *int64
		Count       int
	}
	err := q.Select("article, barcode, product_name, nm_id, COUNT(*) AS count").
		Group("article, barcode, product_name, nm_id").
		Order("count DESC").
		Order("article").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]supply.ItemGroup, 0, len(rows))
	for _, row := range rows {
		g := supply.ItemGroup{NmID: row.NmID, Count: row.Count}
		if row.Article != nil {
			g.Article = *row.Article
		}
		if row.Barcode != nil {
			g.Barcode = *row.Barcode
		}
		if row.ProductName != nil {
			g.ProductName = *row.ProductName
		}
		out = append(out, g)
	}
	return out, nil
}

// NameGaps returns products whose orders still lack a real name, most frequent first.
func (r *GormOrderRepository) NameGaps(ctx context.Context, limit int) ([]supply.NameGap, error) {
	var rows []struct {
		Article string
		NmID    *int64
		StoreID *string
		Count   int
	}
	err := r.db.WithContext(ctx).
		Table("supply_orders AS o").
		Select("o.article AS article, o.nm_id AS nm_id, s.store_id AS store_id, COUNT(*) AS count").
		Joins("LEFT JOIN supply_settings AS s ON s.supply_id = o.supply_id").
		Where("o.article IS NOT NULL AND o.article <> ''").
		Where(placeholderNameSQL("o")).
		Group("o.article, o.nm_id, s.store_id").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]supply.NameGap, 0, len(rows))
	for _, row := range rows {
		gap := supply.NameGap{Article: row.Article, NmID: row.NmID, Count: row.Count}
		if row.StoreID != nil {
			gap.StoreID = *row.StoreID
		}
		out = append(out, gap)
	}
	return out, nil
}

// FillNames sets the name of every unnamed order of an article within a store's supplies.
func (r *GormOrderRepository) FillNames(ctx context.Context, storeID, article, title string) (int64, error) {
	storeSupplies := r.db.Model(&models.SupplySettingsModel{}).Select("supply_id").Where("store_id = ?", storeID)
	res := r.db.WithContext(ctx).
		Model(&models.SupplyOrderModel{}).
		Where("article = ?", article).
		Where(placeholderNameSQL("")).
		Where("supply_id IN (?)", storeSupplies).
		Update("product_name", title)
	return res.RowsAffected, res.Error
}
