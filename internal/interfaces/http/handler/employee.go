package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	fulfillmentapp "github.com/kif1r4ek/test-my-sklad/internal/application/fulfillment"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// EmployeeViews lists the work visible to an employee.
type EmployeeViews interface {
	ListSupplies(ctx context.Context, actor supply.Actor) ([]supply.EmployeeSupply, error)
	Items(ctx context.Context, actor supply.Actor, supplyID string) ([]supply.ItemGroup, error)
	Orders(ctx context.Context, actor supply.Actor, supplyID string, query fulfillmentapp.OrderQuery) ([]supply.SupplyOrder, error)
}

// ScanProtocol runs the scan steps of an order.
type ScanProtocol interface {
	Scan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error)
	LabelScan(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error)
	Collect(ctx context.Context, actor supply.Actor, supplyID string, orderID int64) (*supply.SupplyOrder, error)
}

// EmployeeHandler serves the packing workflow of warehouse employees
type EmployeeHandler struct {
	BaseHandler
	views EmployeeViews
	scans ScanProtocol
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(views EmployeeViews, scans ScanProtocol, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		BaseHandler: newBaseHandler(logger),
		views:       views,
		scans:       scans,
	}
}

// ListSupplies lists the supplies the employee can work on
func (h *EmployeeHandler) ListSupplies(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	supplies, err := h.views.ListSupplies(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplies)
}

// ListItems groups the remaining orders of a supply by product
func (h *EmployeeHandler) ListItems(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	groups, err := h.views.Items(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// ListOrders lists the remaining orders of a supply
func (h *EmployeeHandler) ListOrders(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q dto.EmployeeOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	rows, err := h.views.Orders(c.Request.Context(), actor, c.Param("id"), fulfillmentapp.OrderQuery{
		Article: q.Article,
		Barcode: q.Barcode,
		NmID:    q.NmID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponses(rows))
}

// Scan verifies the product barcode of an order
func (h *EmployeeHandler) Scan(c *gin.Context) {
	h.scanStep(c, h.scans.Scan)
}

// LabelScan verifies the shipping label of an order and collects it
func (h *EmployeeHandler) LabelScan(c *gin.Context) {
	h.scanStep(c, h.scans.LabelScan)
}

// Collect marks an order collected after both scans passed
func (h *EmployeeHandler) Collect(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.scans.Collect(c.Request.Context(), actor, c.Param("id"), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponse(order))
}

type scanFunc func(ctx context.Context, actor supply.Actor, supplyID string, orderID int64, barcode string) (*supply.SupplyOrder, error)

func (h *EmployeeHandler) scanStep(c *gin.Context, step scanFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}
	var req dto.BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	order, err := step(c.Request.Context(), actor, c.Param("id"), orderID, req.Barcode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponse(order))
}
