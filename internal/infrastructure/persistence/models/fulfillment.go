package models

import (
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
)

// SupplySettingsModel is the persistence model for supply_settings.
type SupplySettingsModel struct {
	SupplyID         string  `gorm:"type:varchar(64);primaryKey"`
	SupplyName       *string `gorm:"type:varchar(255)"`
	StoreID          *string `gorm:"type:varchar(64);index"`
	StoreName        *string `gorm:"type:varchar(255)"`
	AccessMode       string  `gorm:"type:varchar(32);not null;default:hidden"`
	LabelsStatus     string  `gorm:"type:varchar(16);not null;default:idle"`
	LabelsFormat     *string `gorm:"type:varchar(16)"`
	LabelsPrefix     *string `gorm:"type:varchar(255)"`
	LabelsTotal      int     `gorm:"not null;default:0"`
	LabelsLoaded     int     `gorm:"not null;default:0"`
	LabelsError      *string `gorm:"type:text"`
	LabelsStartedAt  *time.Time
	LabelsFinishedAt *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplySettingsModel) TableName() string {
	return "supply_settings"
}

// ToDomain converts the model to domain settings
func (m *SupplySettingsModel) ToDomain() *supply.Settings {
	return &supply.Settings{
		SupplyID:         m.SupplyID,
		SupplyName:       deref(m.SupplyName),
		StoreID:          deref(m.StoreID),
		StoreName:        deref(m.StoreName),
		AccessMode:       supply.AccessMode(m.AccessMode),
		LabelsStatus:     supply.LabelStatus(m.LabelsStatus),
		LabelsFormat:     deref(m.LabelsFormat),
		LabelsPrefix:     deref(m.LabelsPrefix),
		LabelsTotal:      m.LabelsTotal,
		LabelsLoaded:     m.LabelsLoaded,
		LabelsError:      deref(m.LabelsError),
		LabelsStartedAt:  m.LabelsStartedAt,
		LabelsFinishedAt: m.LabelsFinishedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// SupplyAccessUserModel is the persistence model for supply_access_users.
type SupplyAccessUserModel struct {
	SupplyID  string    `gorm:"type:varchar(64);primaryKey"`
	UserID    int64     `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplyAccessUserModel) TableName() string {
	return "supply_access_users"
}

// SupplyOrderModel is the persistence model for supply_orders.
// Text columns are nullable so upserts can keep stored values.
type SupplyOrderModel struct {
	SupplyID       string     `gorm:"type:varchar(64);primaryKey"`
	OrderID        int64      `gorm:"primaryKey"`
	OrderCreatedAt *time.Time `gorm:"column:created_at"`
	Article        *string    `gorm:"type:varchar(255);index"`
	Barcode        *string    `gorm:"type:varchar(64)"`
	ProductName    *string    `gorm:"type:text"`
	NmID           *int64
	Quantity       *int
	WarehouseID    *int64
	CargoType      *int64

	ScanPassedAt      *time.Time
	ScanPassedBy      *int64
	ScanBarcode       *string `gorm:"type:varchar(64)"`
	LabelScanPassedAt *time.Time
	LabelScanPassedBy *int64
	LabelScanBarcode  *string `gorm:"type:varchar(64)"`
	CollectedAt       *time.Time
	CollectedBy       *int64
	CollectedVia      *string `gorm:"type:varchar(16)"`

	StickerURL      *string `gorm:"type:text"`
	StickerKey      *string `gorm:"type:text"`
	StickerBarcode  *string `gorm:"type:varchar(64)"`
	StickerError    *string `gorm:"type:text"`
	StickerLoadedAt *time.Time

	AssignedUserID *int64 `gorm:"index"`
	AssignedAt     *time.Time
	SyncedAt       *time.Time
}

// TableName returns the table name for GORM
func (SupplyOrderModel) TableName() string {
	return "supply_orders"
}

// FromOrder builds a row from a synchronized order. Empty values become NULL.
func (m *SupplyOrderModel) FromOrder(supplyID string, o supply.Order, syncedAt time.Time) {
	m.SupplyID = supplyID
	m.OrderID = o.ID
	if !o.CreatedAt.IsZero() {
		created := o.CreatedAt
		m.OrderCreatedAt = &created
	}
	m.Article = Nullable(o.Article)
	m.Barcode = Nullable(o.Barcode)
	m.ProductName = Nullable(o.ProductName)
	m.NmID = o.NmID
	if o.Quantity > 0 {
		q := o.Quantity
		m.Quantity = &q
	}
	m.WarehouseID = o.WarehouseID
	m.CargoType = o.CargoType
	m.SyncedAt = &syncedAt
}

// ToDomain converts the row to a domain supply order
func (m *SupplyOrderModel) ToDomain() *supply.SupplyOrder {
	quantity := 1
	if m.Quantity != nil && *m.Quantity > 0 {
		quantity = *m.Quantity
	}
	return &supply.SupplyOrder{
		SupplyID:          m.SupplyID,
		OrderID:           m.OrderID,
		CreatedAt:         m.OrderCreatedAt,
		Article:           deref(m.Article),
		Barcode:           deref(m.Barcode),
		ProductName:       deref(m.ProductName),
		NmID:              m.NmID,
		Quantity:          quantity,
		WarehouseID:       m.WarehouseID,
		CargoType:         m.CargoType,
		ScanPassedAt:      m.ScanPassedAt,
		ScanPassedBy:      m.ScanPassedBy,
		ScanBarcode:       deref(m.ScanBarcode),
		LabelScanPassedAt: m.LabelScanPassedAt,
		LabelScanPassedBy: m.LabelScanPassedBy,
		LabelScanBarcode:  deref(m.LabelScanBarcode),
		CollectedAt:       m.CollectedAt,
		CollectedBy:       m.CollectedBy,
		CollectedVia:      deref(m.CollectedVia),
		StickerURL:        deref(m.StickerURL),
		StickerKey:        deref(m.StickerKey),
		StickerBarcode:    deref(m.StickerBarcode),
		StickerError:      deref(m.StickerError),
		StickerLoadedAt:   m.StickerLoadedAt,
		AssignedUserID:    m.AssignedUserID,
		AssignedAt:        m.AssignedAt,
		SyncedAt:          m.SyncedAt,
	}
}

// Nullable returns nil for blank strings.
func Nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
