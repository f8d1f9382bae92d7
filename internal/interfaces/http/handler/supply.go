package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// AccessManager administers supply access and work distribution.
type AccessManager interface {
	SettingsOverview(ctx context.Context, supplyID string) (*supply.SettingsOverview, error)
	UpdateAccessMode(ctx context.Context, supplyID string, mode supply.AccessMode) (*supply.SettingsOverview, error)
	SetAccessUsers(ctx context.Context, supplyID string, userIDs []int64) error
	ResetAccess(ctx context.Context, supplyID string) error
	Split(ctx context.Context, supplyID string) (*supply.DistributionResult, error)
	Redistribute(ctx context.Context, supplyID string) (*supply.DistributionResult, error)
}

// LabelRunner generates the labels of a supply.
type LabelRunner interface {
	Start(ctx context.Context, supplyID, supplyName string, force bool)
	Run(ctx context.Context, supplyID, supplyName string, force bool) (supply.LabelJobState, error)
}

// SupplyOrders lists the synchronized orders of a supply.
type SupplyOrders interface {
	ListSupplyOrders(ctx context.Context, supplyID string) ([]supply.SupplyOrder, error)
}

// SupplyHandler serves the admin operations on one supply
type SupplyHandler struct {
	BaseHandler
	access AccessManager
	labels LabelRunner
	orders SupplyOrders
}

// NewSupplyHandler creates a new SupplyHandler
func NewSupplyHandler(access AccessManager, labels LabelRunner, orders SupplyOrders, logger *zap.Logger) *SupplyHandler {
	return &SupplyHandler{
		BaseHandler: newBaseHandler(logger),
		access:      access,
		labels:      labels,
		orders:      orders,
	}
}

// ListOrders lists the orders of a supply with their packing progress
func (h *SupplyHandler) ListOrders(c *gin.Context) {
	rows, err := h.orders.ListSupplyOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOrderResponses(rows))
}

// GetSettings returns settings, progress and access users of a supply
func (h *SupplyHandler) GetSettings(c *gin.Context) {
	overview, err := h.access.SettingsOverview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOverviewResponse(overview))
}

// UpdateAccessMode changes who may work on a supply
func (h *SupplyHandler) UpdateAccessMode(c *gin.Context) {
	var req dto.AccessModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	overview, err := h.access.UpdateAccessMode(c.Request.Context(), c.Param("id"), supply.AccessMode(req.Mode))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOverviewResponse(overview))
}

// SetAccessUsers replaces the employees admitted to a supply
func (h *SupplyHandler) SetAccessUsers(c *gin.Context) {
	var req dto.AccessUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	ctx := c.Request.Context()
	supplyID := c.Param("id")
	if err := h.access.SetAccessUsers(ctx, supplyID, req.UserIDs); err != nil {
		h.HandleError(c, err)
		return
	}
	overview, err := h.access.SettingsOverview(ctx, supplyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOverviewResponse(overview))
}

// ResetAccess opens a supply to everyone and drops its assignments
func (h *SupplyHandler) ResetAccess(c *gin.Context) {
	if err := h.access.ResetAccess(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"supplyId": c.Param("id")})
}

// Split assigns the unassigned orders of a supply to its access users
func (h *SupplyHandler) Split(c *gin.Context) {
	res, err := h.access.Split(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Redistribute reassigns every uncollected order of a supply
func (h *SupplyHandler) Redistribute(c *gin.Context) {
	res, err := h.access.Redistribute(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// GenerateLabels starts the label job of a supply. With wait the response
// carries the final job state, otherwise the job continues in the background.
func (h *SupplyHandler) GenerateLabels(c *gin.Context) {
	var req dto.LabelsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}
	supplyID := c.Param("id")
	if !req.Wait {
		h.labels.Start(c.Request.Context(), supplyID, req.Name, req.Force)
		h.Accepted(c, gin.H{"supplyId": supplyID, "status": supply.LabelsLoading})
		return
	}
	state, err := h.labels.Run(c.Request.Context(), supplyID, req.Name, req.Force)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, state)
}
