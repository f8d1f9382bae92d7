package supply

import "time"

// Collection channels recorded in CollectedVia.
const (
	CollectedViaLabelScan = "label_scan"
	CollectedViaManual    = "label"
)

// SupplyOrder is an order inside a supply together with its packing progress.
// Timestamps are kept for audit; State derives the protocol position from them.
type SupplyOrder struct {
	SupplyID    string
	OrderID     int64
	CreatedAt   *time.Time
	Article     string
	Barcode     string
	ProductName string
	NmID        *int64
	Quantity    int
	WarehouseID *int64
	CargoType   *int64

	ScanPassedAt      *time.Time
	ScanPassedBy      *int64
	ScanBarcode       string
	LabelScanPassedAt *time.Time
	LabelScanPassedBy *int64
	LabelScanBarcode  string
	CollectedAt       *time.Time
	CollectedBy       *int64
	CollectedVia      string

	StickerURL      string
	StickerKey      string
	StickerBarcode  string
	StickerError    string
	StickerLoadedAt *time.Time

	AssignedUserID *int64
	AssignedAt     *time.Time
	SyncedAt       *time.Time
}

// ToOrder returns the order view of the row.
func (o SupplyOrder) ToOrder() Order {
	order := Order{
		ID:          o.OrderID,
		Article:     o.Article,
		NmID:        o.NmID,
		WarehouseID: o.WarehouseID,
		CargoType:   o.CargoType,
		SupplyID:    o.SupplyID,
		Quantity:    o.Quantity,
		Barcode:     o.Barcode,
		ProductName: o.ProductName,
	}
	if o.CreatedAt != nil {
		order.CreatedAt = *o.CreatedAt
	}
	return order
}

// State returns the position of the order in the scan protocol.
func (o SupplyOrder) State() ScanState {
	switch {
	case o.CollectedAt != nil:
		return StateCollected
	case o.LabelScanPassedAt != nil:
		return StateLabelOK
	case o.ScanPassedAt != nil:
		return StateScanOK
	default:
		return StatePending
	}
}

// PassScan records a successful product scan.
// It returns false when the order was already past this step.
func (o *SupplyOrder) PassScan(actor Actor, barcode string, at time.Time) bool {
	if o.State() >= StateScanOK {
		return false
	}
	o.ScanPassedAt = &at
	o.ScanPassedBy = ptr(actor.UserID)
	o.ScanBarcode = barcode
	return true
}

// CanLabelScan checks the predecessor of the label scan step.
func (o *SupplyOrder) CanLabelScan() error {
	if o.ScanPassedAt == nil {
		return ErrFinishPackFirst
	}
	return nil
}

// PassLabelScan records a matching label scan and collects the order in the same step.
// It returns false when the label scan had already passed.
func (o *SupplyOrder) PassLabelScan(actor Actor, barcode string, at time.Time) (bool, error) {
	if err := o.CanLabelScan(); err != nil {
		return false, err
	}
	if o.LabelScanPassedAt != nil {
		return false, nil
	}
	o.LabelScanPassedAt = &at
	o.LabelScanPassedBy = ptr(actor.UserID)
	o.LabelScanBarcode = barcode
	if o.CollectedAt == nil {
		o.CollectedAt = &at
		o.CollectedBy = ptr(actor.UserID)
		o.CollectedVia = CollectedViaLabelScan
	}
	return true, nil
}

// Collect is the manual collection path. Both scans must have passed.
// It returns false when the order is already collected.
func (o *SupplyOrder) Collect(actor Actor, at time.Time) (bool, error) {
	if o.ScanPassedAt == nil {
		return false, ErrPackNotPassed
	}
	if o.LabelScanPassedAt == nil {
		return false, ErrLabelNotPassed
	}
	if o.CollectedAt != nil {
		return false, nil
	}
	o.CollectedAt = &at
	o.CollectedBy = ptr(actor.UserID)
	o.CollectedVia = CollectedViaManual
	return true, nil
}

func ptr[T any](v T) *T {
	return &v
}
