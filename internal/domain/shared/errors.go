package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the parent error so errors.Is matches the broader kind.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Derive creates a more specific error of the same kind as parent.
func Derive(parent *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    parent.Code,
		Message: message,
		Err:     parent,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrForbidden         = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrRemoteUnavailable = NewDomainError("REMOTE_UNAVAILABLE", "Remote service unavailable")
	ErrRateLimited       = NewDomainError("RATE_LIMITED", "Remote service rate limit reached")
)
