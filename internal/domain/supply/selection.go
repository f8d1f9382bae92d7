package supply

import (
	"slices"
	"sort"
)

// SortDirection orders new orders for selection.
type SortDirection string

const (
	SortOldest SortDirection = "oldest"
	SortNewest SortDirection = "newest"
)

// Selection is the set of orders proposed for a new supply.
type Selection struct {
	Selected    []Order `json:"selected"`
	Available   int     `json:"available"`
	WarehouseID *int64  `json:"warehouseId"`
	CargoType   *int64  `json:"cargoType"`
}

// PickOrders selects up to count orders that can ship together.
// Orders are sorted by creation time in the requested direction; the first
// order fixes the warehouse and cargo type, and only orders matching both
// are eligible. A nil warehouse or cargo type on the first order matches any.
func PickOrders(orders []Order, dir SortDirection, count int) Selection {
	sorted := slices.Clone(orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	if dir == SortNewest {
		slices.Reverse(sorted)
	}
	if len(sorted) == 0 {
		return Selection{Selected: []Order{}}
	}

	base := sorted[0]
	eligible := make([]Order, 0, len(sorted))
	for _, o := range sorted {
		if sameGroup(base.WarehouseID, o.WarehouseID) && sameGroup(base.CargoType, o.CargoType) {
			eligible = append(eligible, o)
		}
	}

	if count < 0 {
		count = 0
	}
	return Selection{
		Selected:    eligible[:min(count, len(eligible))],
		Available:   len(eligible),
		WarehouseID: base.WarehouseID,
		CargoType:   base.CargoType,
	}
}

func sameGroup(base, v *int64) bool {
	if base == nil {
		return true
	}
	return v != nil && *v == *base
}
