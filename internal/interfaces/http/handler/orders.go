package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// OrderFeed reads marketplace orders and supplies of a store.
type OrderFeed interface {
	Stores() []supply.Store
	NewOrders(ctx context.Context, storeID string) ([]supply.Order, error)
	Orders(ctx context.Context, storeID string) ([]supply.Order, error)
	Supplies(ctx context.Context, storeID string) ([]supply.Supply, error)
	PickOrders(ctx context.Context, storeID string, dir supply.SortDirection, count int) (supply.Selection, error)
}

// SupplyCreator creates supplies from new orders.
type SupplyCreator interface {
	CreateSupply(ctx context.Context, storeID, name string, orderIDs []int64) (*supply.CreateResult, error)
}

// OrdersHandler serves the order feed and supply creation
type OrdersHandler struct {
	BaseHandler
	feed    OrderFeed
	creator SupplyCreator
}

// NewOrdersHandler creates a new OrdersHandler
func NewOrdersHandler(feed OrderFeed, creator SupplyCreator, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		BaseHandler: newBaseHandler(logger),
		feed:        feed,
		creator:     creator,
	}
}

// ListStores lists the configured stores
func (h *OrdersHandler) ListStores(c *gin.Context) {
	h.Success(c, dto.ToStoreResponses(h.feed.Stores()))
}

// ListNewOrders lists orders awaiting a supply, oldest first
func (h *OrdersHandler) ListNewOrders(c *gin.Context) {
	orders, err := h.feed.NewOrders(c.Request.Context(), c.Query("storeId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// ListOrders lists the orders of the last 30 days
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	orders, err := h.feed.Orders(c.Request.Context(), c.Query("storeId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orders)
}

// PickOrders proposes new orders that can ship in one supply
func (h *OrdersHandler) PickOrders(c *gin.Context) {
	var q dto.PickOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	dir := supply.SortOldest
	if q.Sort == string(supply.SortNewest) {
		dir = supply.SortNewest
	}
	sel, err := h.feed.PickOrders(c.Request.Context(), c.Query("storeId"), dir, q.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sel)
}

// ListSupplies lists the open supplies of a store with local progress
func (h *OrdersHandler) ListSupplies(c *gin.Context) {
	supplies, err := h.feed.Supplies(c.Request.Context(), c.Query("storeId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplies)
}

// CreateSupply creates a supply and adds the given orders to it
func (h *OrdersHandler) CreateSupply(c *gin.Context) {
	var req dto.CreateSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	res, err := h.creator.CreateSupply(c.Request.Context(), req.StoreID, req.Name, req.OrderIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
