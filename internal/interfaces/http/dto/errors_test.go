package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidState, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRemoteUnavailable, http.StatusBadGateway},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"scan mismatch", supply.ErrScanAgain, http.StatusBadRequest, ErrCodeInvalidInput, supply.ErrScanAgain.Message},
		{"label before scan", supply.ErrFinishPackFirst, http.StatusBadRequest, ErrCodeInvalidState, supply.ErrFinishPackFirst.Message},
		{"access denied", supply.ErrAccessDenied, http.StatusForbidden, ErrCodeForbidden, "FORBIDDEN"},
		{"unavailable supply", supply.ErrSupplyUnavailable, http.StatusNotFound, ErrCodeNotFound, supply.ErrSupplyUnavailable.Message},
		{"wrapped rate limit", fmt.Errorf("%w: status 429", shared.ErrRateLimited), http.StatusTooManyRequests, ErrCodeRateLimited, shared.ErrRateLimited.Message},
		{"remote failure", fmt.Errorf("create supply: %w", supply.ErrSupplyNotCreated), http.StatusBadGateway, ErrCodeRemoteUnavailable, supply.ErrSupplyNotCreated.Message},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, info := ErrorFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.Equal(t, tt.wantMessage, info.Message)
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{{Field: "name", Message: "This field is required"}})

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
