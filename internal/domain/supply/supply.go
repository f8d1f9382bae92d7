package supply

import "time"

// RemoteSupply is a supply as listed by the marketplace.
type RemoteSupply struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Done      bool
}

// Supply is an open supply enriched with local aggregates.
type Supply struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	CreatedAt       time.Time  `json:"createdAt"`
	Done            bool       `json:"done"`
	StoreID         string     `json:"storeId"`
	StoreName       string     `json:"storeName"`
	OrderCount      int        `json:"orderCount"`
	CollectedCount  int        `json:"collectedCount"`
	RemainingCount  int        `json:"remainingCount"`
	ItemCount       int        `json:"itemCount"`
	AssignedUsers   int        `json:"assignedUsers"`
	AccessUserCount int        `json:"accessUserCount"`
	AccessMode      AccessMode `json:"accessMode"`
}

// ApplyAggregate copies counters onto the supply.
func (s *Supply) ApplyAggregate(a Aggregate) {
	s.OrderCount = a.OrderCount
	s.CollectedCount = a.CollectedCount
	s.RemainingCount = max(0, a.OrderCount-a.CollectedCount)
	s.ItemCount = a.ItemCount
	s.AssignedUsers = a.AssignedUsers
}

// Aggregate holds per-supply counters computed from supply orders.
type Aggregate struct {
	OrderCount     int
	CollectedCount int
	ItemCount      int
	AssignedUsers  int
}

// Totals are order counters of one supply, optionally restricted to an assignee.
type Totals struct {
	Total     int `json:"total"`
	Collected int `json:"collected"`
	Remaining int `json:"remaining"`
}

// ProgressRow is the per-user progress within a supply.
// Total is only known for split supplies.
type ProgressRow struct {
	UserID    int64 `json:"userId"`
	Total     *int  `json:"total"`
	Collected int   `json:"collected"`
}

// ItemGroup is a count of uncollected orders sharing the same product.
type ItemGroup struct {
	Article     string `json:"article"`
	Barcode     string `json:"barcode"`
	ProductName string `json:"productName"`
	NmID        *int64 `json:"nmId"`
	Count       int    `json:"count"`
}

// NameGap is a product whose orders still lack a real name.
type NameGap struct {
	Article string
	NmID    *int64
	StoreID string
	Count   int
}

// OrderFilter narrows supply order listings.
type OrderFilter struct {
	UncollectedOnly bool
	AssignedTo      *int64
	// OrderByID sorts by order id instead of (created_at, id).
	OrderByID bool
}

// InfoUpdate carries backfilled product fields of one order. Empty values are ignored.
type InfoUpdate struct {
	OrderID     int64
	ProductName string
	Barcode     string
}

// StickerRecord is the result of a successful label upload.
type StickerRecord struct {
	OrderID int64
	URL     string
	Key     string
	Barcode string
}

// CreateResult is the outcome of creating a supply and adding orders to it.
type CreateResult struct {
	SupplyID     string  `json:"supplyId"`
	AddedCount   int     `json:"addedCount"`
	FailedCount  int     `json:"failedCount"`
	FailedIDs    []int64 `json:"failedIds"`
	FailedReason string  `json:"failedReason,omitempty"`
}

// SettingsOverview is the admin view of a supply.
type SettingsOverview struct {
	Settings      *Settings     `json:"settings"`
	Totals        Totals        `json:"totals"`
	AccessUserIDs []int64       `json:"accessUserIds"`
	Progress      []ProgressRow `json:"progress"`
}

// EmployeeSupply is a supply as listed for an employee.
type EmployeeSupply struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AccessMode AccessMode `json:"accessMode"`
	StoreID    string     `json:"storeId"`
	StoreName  string     `json:"storeName"`
	Total      int        `json:"total"`
	Collected  int        `json:"collected"`
	Remaining  int        `json:"remaining"`
}
