package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type supplyHandlerDeps struct {
	access *mockAccess
	labels *mockLabels
	orders *mockSupplyOrders
}

func setupSupplyHandler() (*gin.Engine, supplyHandlerDeps) {
	deps := supplyHandlerDeps{
		access: new(mockAccess),
		labels: new(mockLabels),
		orders: new(mockSupplyOrders),
	}
	h := NewSupplyHandler(deps.access, deps.labels, deps.orders, nil)

	r := newTestEngine()
	g := r.Group("/supplies/:id")
	g.GET("/orders", h.ListOrders)
	g.GET("/settings", h.GetSettings)
	g.PUT("/access-mode", h.UpdateAccessMode)
	g.PUT("/access-users", h.SetAccessUsers)
	g.POST("/reset-access", h.ResetAccess)
	g.POST("/split", h.Split)
	g.POST("/redistribute", h.Redistribute)
	g.POST("/labels", h.GenerateLabels)
	return r, deps
}

func overviewFor(supplyID string, mode supply.AccessMode, users ...int64) *supply.SettingsOverview {
	return &supply.SettingsOverview{
		Settings:      &supply.Settings{SupplyID: supplyID, AccessMode: mode, LabelsStatus: supply.LabelsIdle},
		Totals:        supply.Totals{Total: 4, Collected: 1, Remaining: 3},
		AccessUserIDs: users,
	}
}

func TestSupplyHandler_ListOrders(t *testing.T) {
	r, deps := setupSupplyHandler()
	rows := []supply.SupplyOrder{
		{SupplyID: "S-1", OrderID: 1, Article: "A-1"},
		{SupplyID: "S-1", OrderID: 2, Article: "A-2"},
	}
	rows[1].PassScan(supply.Actor{UserID: 10}, "4600000000028", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	deps.orders.On("ListSupplyOrders", mock.Anything, "S-1").Return(rows, nil)

	w, resp := performRequest(t, r, http.MethodGet, "/supplies/S-1/orders", nil, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	var out []dto.OrderResponse
	decodeData(t, resp, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "pending", out[0].State)
	assert.False(t, out[0].ScanPassed)
	assert.True(t, out[1].ScanPassed)
	assert.False(t, out[1].LabelPassed)
}

func TestSupplyHandler_GetSettings(t *testing.T) {
	r, deps := setupSupplyHandler()
	deps.access.On("SettingsOverview", mock.Anything, "S-1").Return(overviewFor("S-1", supply.AccessAll), nil)

	w, resp := performRequest(t, r, http.MethodGet, "/supplies/S-1/settings", nil, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	var out dto.OverviewResponse
	decodeData(t, resp, &out)
	assert.Equal(t, "S-1", out.Settings.SupplyID)
	assert.Equal(t, "all", out.Settings.AccessMode)
	assert.Equal(t, 3, out.Totals.Remaining)
}

func TestSupplyHandler_UpdateAccessMode(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		r, deps := setupSupplyHandler()
		deps.access.On("UpdateAccessMode", mock.Anything, "S-1", supply.AccessSelectedSplit).
			Return(overviewFor("S-1", supply.AccessSelectedSplit, 10, 11), nil)

		w, resp := performRequest(t, r, http.MethodPut, "/supplies/S-1/access-mode",
			dto.AccessModeRequest{Mode: "selected_split"}, 0)

		assert.Equal(t, http.StatusOK, w.Code)
		var out dto.OverviewResponse
		decodeData(t, resp, &out)
		assert.Equal(t, []int64{10, 11}, out.AccessUserIDs)
	})

	t.Run("unknown mode", func(t *testing.T) {
		r, deps := setupSupplyHandler()

		w, resp := performRequest(t, r, http.MethodPut, "/supplies/S-1/access-mode",
			dto.AccessModeRequest{Mode: "everyone"}, 0)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "mode", resp.Error.Details[0].Field)
		deps.access.AssertNotCalled(t, "UpdateAccessMode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no access users", func(t *testing.T) {
		r, deps := setupSupplyHandler()
		deps.access.On("UpdateAccessMode", mock.Anything, "S-1", supply.AccessSelected).
			Return(nil, supply.ErrNoAccessUsers)

		w, resp := performRequest(t, r, http.MethodPut, "/supplies/S-1/access-mode",
			dto.AccessModeRequest{Mode: "selected"}, 0)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	})
}

func TestSupplyHandler_SetAccessUsers(t *testing.T) {
	r, deps := setupSupplyHandler()
	deps.access.On("SetAccessUsers", mock.Anything, "S-1", []int64{10, 11}).Return(nil)
	deps.access.On("SettingsOverview", mock.Anything, "S-1").
		Return(overviewFor("S-1", supply.AccessSelected, 10, 11), nil)

	w, resp := performRequest(t, r, http.MethodPut, "/supplies/S-1/access-users",
		dto.AccessUsersRequest{UserIDs: []int64{10, 11}}, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	var out dto.OverviewResponse
	decodeData(t, resp, &out)
	assert.Equal(t, []int64{10, 11}, out.AccessUserIDs)
	deps.access.AssertExpectations(t)
}

func TestSupplyHandler_Distribution(t *testing.T) {
	r, deps := setupSupplyHandler()
	deps.access.On("ResetAccess", mock.Anything, "S-1").Return(nil)
	deps.access.On("Split", mock.Anything, "S-1").Return(&supply.DistributionResult{
		Total:    3,
		Assigned: 3,
		PerUser:  []supply.UserCount{{UserID: 10, Count: 2}, {UserID: 11, Count: 1}},
	}, nil)
	deps.access.On("Redistribute", mock.Anything, "S-2").Return(nil, supply.ErrNoAccessUsers)

	w, _ := performRequest(t, r, http.MethodPost, "/supplies/S-1/reset-access", nil, 0)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := performRequest(t, r, http.MethodPost, "/supplies/S-1/split", nil, 0)
	assert.Equal(t, http.StatusOK, w.Code)
	var res supply.DistributionResult
	decodeData(t, resp, &res)
	assert.Equal(t, 3, res.Assigned)
	assert.Len(t, res.PerUser, 2)

	w, _ = performRequest(t, r, http.MethodPost, "/supplies/S-2/redistribute", nil, 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupplyHandler_GenerateLabels(t *testing.T) {
	t.Run("background", func(t *testing.T) {
		r, deps := setupSupplyHandler()
		deps.labels.On("Start", mock.Anything, "S-1", "", false).Return()

		w, resp := performRequest(t, r, http.MethodPost, "/supplies/S-1/labels", nil, 0)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"supplyId":"S-1","status":"loading"}`, string(resp.Data))
		deps.labels.AssertExpectations(t)
	})

	t.Run("wait", func(t *testing.T) {
		r, deps := setupSupplyHandler()
		deps.labels.On("Run", mock.Anything, "S-1", "Morning", true).
			Return(supply.LabelJobState{Status: supply.LabelsReady, Total: 2, Loaded: 2}, nil)

		w, resp := performRequest(t, r, http.MethodPost, "/supplies/S-1/labels",
			dto.LabelsRequest{Name: "Morning", Force: true, Wait: true}, 0)

		assert.Equal(t, http.StatusOK, w.Code)
		var state supply.LabelJobState
		decodeData(t, resp, &state)
		assert.Equal(t, supply.LabelsReady, state.Status)
		assert.Equal(t, 2, state.Loaded)
	})

	t.Run("wait fails", func(t *testing.T) {
		r, deps := setupSupplyHandler()
		deps.labels.On("Run", mock.Anything, "S-1", "", false).
			Return(supply.LabelJobState{}, errors.New("storage offline"))

		w, resp := performRequest(t, r, http.MethodPost, "/supplies/S-1/labels",
			dto.LabelsRequest{Wait: true}, 0)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.NotContains(t, resp.Error.Message, "storage offline")
	})
}
