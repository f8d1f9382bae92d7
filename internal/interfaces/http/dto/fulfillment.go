package dto

import (
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
)

// CreateSupplyRequest is the body of a supply creation request
type CreateSupplyRequest struct {
	StoreID  string  `json:"storeId"`
	Name     string  `json:"name" binding:"required,max=128"`
	OrderIDs []int64 `json:"orderIds" binding:"required,min=1,dive,gt=0"`
}

// PickOrdersQuery selects new orders for a supply
type PickOrdersQuery struct {
	Sort  string `form:"sort" binding:"omitempty,oneof=oldest newest"`
	Count int    `form:"count" binding:"required,min=1,max=1000"`
}

// AccessModeRequest changes the access mode of a supply
type AccessModeRequest struct {
	Mode string `json:"mode" binding:"required,access_mode"`
}

// AccessUsersRequest replaces the access users of a supply
type AccessUsersRequest struct {
	UserIDs []int64 `json:"userIds" binding:"dive,gt=0"`
}

// LabelsRequest starts a label job
type LabelsRequest struct {
	Name  string `json:"name" binding:"max=128"`
	Force bool   `json:"force"`
	Wait  bool   `json:"wait"`
}

// BarcodeRequest carries a scanned barcode
type BarcodeRequest struct {
	Barcode string `json:"barcode" binding:"required,max=128"`
}

// EmployeeOrdersQuery narrows the orders listed for an employee
type EmployeeOrdersQuery struct {
	Article string `form:"article"`
	Barcode string `form:"barcode"`
	NmID    *int64 `form:"nmId" binding:"omitempty,gt=0"`
}

// StoreResponse is a configured store without its credentials
type StoreResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SettingsResponse is the locally owned state of a supply
type SettingsResponse struct {
	SupplyID         string     `json:"supplyId"`
	SupplyName       string     `json:"supplyName"`
	StoreID          string     `json:"storeId"`
	StoreName        string     `json:"storeName"`
	AccessMode       string     `json:"accessMode"`
	LabelsStatus     string     `json:"labelsStatus"`
	LabelsFormat     string     `json:"labelsFormat,omitempty"`
	LabelsPrefix     string     `json:"labelsPrefix,omitempty"`
	LabelsTotal      int        `json:"labelsTotal"`
	LabelsLoaded     int        `json:"labelsLoaded"`
	LabelsError      string     `json:"labelsError,omitempty"`
	LabelsStartedAt  *time.Time `json:"labelsStartedAt,omitempty"`
	LabelsFinishedAt *time.Time `json:"labelsFinishedAt,omitempty"`
}

// OverviewResponse is the admin view of a supply
type OverviewResponse struct {
	Settings      SettingsResponse     `json:"settings"`
	Totals        supply.Totals        `json:"totals"`
	AccessUserIDs []int64              `json:"accessUserIds"`
	Progress      []supply.ProgressRow `json:"progress"`
}

// OrderResponse is a supply order with its packing progress
type OrderResponse struct {
	OrderID        int64      `json:"orderId"`
	SupplyID       string     `json:"supplyId"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	Article        string     `json:"article"`
	Barcode        string     `json:"barcode"`
	ProductName    string     `json:"productName"`
	NmID           *int64     `json:"nmId,omitempty"`
	Quantity       int        `json:"quantity"`
	State          string     `json:"state"`
	ScanPassed     bool       `json:"scanPassed"`
	LabelPassed    bool       `json:"labelScanPassed"`
	Collected      bool       `json:"collected"`
	CollectedVia   string     `json:"collectedVia,omitempty"`
	StickerURL     string     `json:"stickerUrl,omitempty"`
	StickerError   string     `json:"stickerError,omitempty"`
	AssignedUserID *int64     `json:"assignedUserId,omitempty"`
}

// ToStoreResponses drops the credentials of the configured stores
func ToStoreResponses(stores []supply.Store) []StoreResponse {
	out := make([]StoreResponse, 0, len(stores))
	for _, s := range stores {
		out = append(out, StoreResponse{ID: s.ID, Name: s.Name})
	}
	return out
}

// ToSettingsResponse converts supply settings
func ToSettingsResponse(s *supply.Settings) SettingsResponse {
	if s == nil {
		return SettingsResponse{}
	}
	return SettingsResponse{
		SupplyID:         s.SupplyID,
		SupplyName:       s.SupplyName,
		StoreID:          s.StoreID,
		StoreName:        s.StoreName,
		AccessMode:       string(s.AccessMode),
		LabelsStatus:     string(s.LabelsStatus),
		LabelsFormat:     s.LabelsFormat,
		LabelsPrefix:     s.LabelsPrefix,
		LabelsTotal:      s.LabelsTotal,
		LabelsLoaded:     s.LabelsLoaded,
		LabelsError:      s.LabelsError,
		LabelsStartedAt:  s.LabelsStartedAt,
		LabelsFinishedAt: s.LabelsFinishedAt,
	}
}

// ToOverviewResponse converts the admin view of a supply
func ToOverviewResponse(o *supply.SettingsOverview) OverviewResponse {
	return OverviewResponse{
		Settings:      ToSettingsResponse(o.Settings),
		Totals:        o.Totals,
		AccessUserIDs: o.AccessUserIDs,
		Progress:      o.Progress,
	}
}

// ToOrderResponse converts a supply order
func ToOrderResponse(o *supply.SupplyOrder) OrderResponse {
	state := o.State()
	return OrderResponse{
		OrderID:        o.OrderID,
		SupplyID:       o.SupplyID,
		CreatedAt:      o.CreatedAt,
		Article:        o.Article,
		Barcode:        o.Barcode,
		ProductName:    o.ProductName,
		NmID:           o.NmID,
		Quantity:       o.Quantity,
		State:          state.String(),
		ScanPassed:     state >= supply.StateScanOK,
		LabelPassed:    state >= supply.StateLabelOK,
		Collected:      state == supply.StateCollected,
		CollectedVia:   o.CollectedVia,
		StickerURL:     o.StickerURL,
		StickerError:   o.StickerError,
		AssignedUserID: o.AssignedUserID,
	}
}

// ToOrderResponses converts a list of supply orders
func ToOrderResponses(orders []supply.SupplyOrder) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}
