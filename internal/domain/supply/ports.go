package supply

import (
	"context"
	"time"
)

// MarketplaceAPI is the remote marketplace.
// Implementations wrap shared.ErrRemoteUnavailable or shared.ErrRateLimited.
// legacy selects the older endpoint family for calls that have one.
type MarketplaceAPI interface {
	NewOrders(ctx context.Context, store Store) ([]RawOrder, error)
	OrdersRange(ctx context.Context, store Store, from, to time.Time) ([]RawOrder, error)
	Supplies(ctx context.Context, store Store) ([]RemoteSupply, error)
	SupplyOrders(ctx context.Context, store Store, supplyID string) ([]RawOrder, error)
	CreateSupply(ctx context.Context, store Store, name string, legacy bool) (string, error)
	AddOrders(ctx context.Context, store Store, supplyID string, orderIDs []int64, legacy bool) error
	Stickers(ctx context.Context, store Store, orderIDs []int64, spec StickerSpec) ([]Sticker, error)
}

// SettingsRepository persists supply settings.
type SettingsRepository interface {
	// Ensure creates settings if absent and fills empty name/store columns.
	Ensure(ctx context.Context, supplyID, supplyName string, store *Store) (*Settings, error)
	Get(ctx context.Context, supplyID string) (*Settings, error)
	ListVisible(ctx context.Context) ([]Settings, error)
	AccessModes(ctx context.Context, supplyIDs []string) (map[string]AccessMode, error)
	BindStore(ctx context.Context, supplyID string, store Store) error
	SetAccessMode(ctx context.Context, supplyID string, mode AccessMode) error
	SetLabelsPrefix(ctx context.Context, supplyID, prefix string) error
	StartLabels(ctx context.Context, supplyID string, total, loaded int) error
	UpdateLabelsLoaded(ctx context.Context, supplyID string, loaded int) error
	FinishLabels(ctx context.Context, supplyID string, state LabelJobState) error
}

// AccessRepository persists the employees allowed on a supply.
type AccessRepository interface {
	UserIDs(ctx context.Context, supplyID string) ([]int64, error)
	Replace(ctx context.Context, supplyID string, userIDs []int64) error
	SupplyIDsForUser(ctx context.Context, userID int64) ([]string, error)
	CountBySupply(ctx context.Context, supplyIDs []string) (map[string]int, error)
}

// OrderRepository persists supply orders.
type OrderRepository interface {
	// Upsert inserts or updates orders; non-null stored columns are never replaced by null.
	Upsert(ctx context.Context, supplyID string, orders []Order) error
	LastSyncedAt(ctx context.Context, supplyID string) (*time.Time, error)
	Count(ctx context.Context, supplyID string) (int64, error)
	List(ctx context.Context, supplyID string, filter OrderFilter) ([]SupplyOrder, error)
	Get(ctx context.Context, supplyID string, orderID int64) (*SupplyOrder, error)
	UpdateInfo(ctx context.Context, supplyID string, updates []InfoUpdate) error
	SaveScanProgress(ctx context.Context, order *SupplyOrder) error
	SetStickerBarcode(ctx context.Context, supplyID string, orderID int64, barcode string) error
	RecordSticker(ctx context.Context, supplyID string, rec StickerRecord) error
	RecordStickerError(ctx context.Context, supplyID string, orderID int64, message string) error
	ClearAssignments(ctx context.Context, supplyID string, uncollectedOnly bool) error
	Assign(ctx context.Context, supplyID string, userID int64, orderIDs []int64) error
	Aggregates(ctx context.Context, supplyIDs []string) (map[string]Aggregate, error)
	Totals(ctx context.Context, supplyID string, assignedTo *int64) (Totals, error)
	Progress(ctx context.Context, supplyID string, split bool) ([]ProgressRow, error)
	ItemGroups(ctx context.Context, supplyID string, assignedTo *int64) ([]ItemGroup, error)
	NameGaps(ctx context.Context, limit int) ([]NameGap, error)
	FillNames(ctx context.Context, storeID, article, title string) (int64, error)
}

// ObjectStorage stores label documents and returns their public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// LabelRenderer converts a marketplace label image into a printable document.
type LabelRenderer interface {
	Render(imageBase64 string) ([]byte, error)
}

// Notifier announces supply changes to listeners.
// Forced notifications bypass debouncing.
type Notifier interface {
	NotifySupplyUpdate(supplyID string, force bool)
}
