package supply

import (
	"slices"
	"sort"
	"time"
)

// DistributionMode selects which orders a distribution run touches.
type DistributionMode string

const (
	// DistributeSplit assigns only orders that are not assigned yet.
	DistributeSplit DistributionMode = "split"
	// DistributeRedistribute clears uncollected assignments and assigns everything again.
	DistributeRedistribute DistributionMode = "redistribute"
)

// AssignableOrder is the part of an order the distributor needs.
type AssignableOrder struct {
	OrderID   int64
	CreatedAt *time.Time
}

// Allocation is the contiguous chunk of orders handed to one user.
type Allocation struct {
	UserID   int64
	OrderIDs []int64
}

// UserCount is the number of orders assigned to a user in one run.
type UserCount struct {
	UserID int64 `json:"userId"`
	Count  int   `json:"count"`
}

// DistributionResult summarizes a split or redistribute run.
type DistributionResult struct {
	Total    int         `json:"total"`
	Assigned int         `json:"assigned"`
	PerUser  []UserCount `json:"perUser"`
}

// Partition splits orders into contiguous chunks, one per user.
// Orders are ordered by (CreatedAt, OrderID) with missing timestamps first,
// users ascending. Every user gets floor(total/n) orders and the first
// total mod n users one more. The result is deterministic for equal input.
func Partition(orders []AssignableOrder, userIDs []int64) []Allocation {
	if len(userIDs) == 0 {
		return nil
	}

	sorted := slices.Clone(orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := unixMilli(sorted[i].CreatedAt), unixMilli(sorted[j].CreatedAt)
		if ti == tj {
			return sorted[i].OrderID < sorted[j].OrderID
		}
		return ti < tj
	})

	users := slices.Clone(userIDs)
	slices.Sort(users)

	total := len(sorted)
	base := total / len(users)
	extra := total % len(users)

	allocations := make([]Allocation, 0, len(users))
	offset := 0
	for i, userID := range users {
		count := base
		if i < extra {
			count++
		}
		ids := make([]int64, 0, count)
		for _, o := range sorted[offset : offset+count] {
			ids = append(ids, o.OrderID)
		}
		offset += count
		allocations = append(allocations, Allocation{UserID: userID, OrderIDs: ids})
	}
	return allocations
}

// Summarize builds the run result from allocations.
func Summarize(allocations []Allocation) DistributionResult {
	result := DistributionResult{PerUser: make([]UserCount, 0, len(allocations))}
	for _, a := range allocations {
		result.Total += len(a.OrderIDs)
		result.PerUser = append(result.PerUser, UserCount{UserID: a.UserID, Count: len(a.OrderIDs)})
	}
	result.Assigned = result.Total
	return result
}

func unixMilli(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}
