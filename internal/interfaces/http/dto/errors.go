package dto

import (
	"errors"
	"net/http"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
)

// Error codes returned in ErrorInfo.Code
const (
	ErrCodeInternal          = "ERR_INTERNAL"
	ErrCodeValidation        = "ERR_VALIDATION"
	ErrCodeBadRequest        = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput      = "ERR_INVALID_INPUT"
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeUnauthorized      = "ERR_UNAUTHORIZED"
	ErrCodeForbidden         = "ERR_FORBIDDEN"
	ErrCodeNotFound          = "ERR_NOT_FOUND"
	ErrCodeRateLimited       = "ERR_RATE_LIMITED"
	ErrCodeRemoteUnavailable = "ERR_REMOTE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidState:      http.StatusBadRequest,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
	ErrCodeRemoteUnavailable: http.StatusBadGateway,
}

// domainCodes maps shared.DomainError codes to API error codes
var domainCodes = map[string]string{
	shared.ErrNotFound.Code:          ErrCodeNotFound,
	shared.ErrInvalidInput.Code:      ErrCodeInvalidInput,
	shared.ErrForbidden.Code:         ErrCodeForbidden,
	shared.ErrInvalidState.Code:      ErrCodeInvalidState,
	shared.ErrRemoteUnavailable.Code: ErrCodeRemoteUnavailable,
	shared.ErrRateLimited.Code:       ErrCodeRateLimited,
	"VALIDATION_FAILED":              ErrCodeValidation,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodes[code]; ok {
		return apiCode
	}
	return code
}

// ErrorFor classifies err. Errors outside the domain taxonomy become internal
// errors with a generic message.
func ErrorFor(err error) (status int, info ErrorInfo) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := NormalizeErrorCode(domainErr.Code)
		return GetHTTPStatus(code), ErrorInfo{Code: code, Message: domainErr.Message}
	}
	return http.StatusInternalServerError, ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"}
}
