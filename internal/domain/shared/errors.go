package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error codes shared by every bounded context.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeHeldOrder              = "HELD_ORDER"
	CodeNotOnHold              = "NOT_ON_HOLD"
	CodeValidation             = "VALIDATION_ERROR"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeLockUnavailable        = "LOCK_UNAVAILABLE"
)

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so callers
// can compare against the sentinel values below without caring about the message.
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	OrderID uuid.UUID `json:"order_id,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithOrder returns a copy of the error bound to an order id
func (e *DomainError) WithOrder(orderID uuid.UUID) *DomainError {
	cp := *e
	cp.OrderID = orderID
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition      = NewDomainError(CodeInvalidTransition, "Transition not allowed in current state")
	ErrHeldOrder              = NewDomainError(CodeHeldOrder, "Order is on hold")
	ErrNotOnHold              = NewDomainError(CodeNotOnHold, "Order is not on hold")
	ErrValidation             = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrLockUnavailable        = NewDomainError(CodeLockUnavailable, "Resource is locked by another operation")
)

// CodeOf extracts the domain error code from err, or "" when err is not a DomainError
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
