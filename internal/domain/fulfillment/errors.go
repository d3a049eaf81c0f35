package fulfillment

import (
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// NewInvalidTransitionError reports an illegal move from current to requested
func NewInvalidTransitionError(orderID uuid.UUID, current, requested fmt.Stringer) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeInvalidTransition,
		"cannot transition order %s from %s to %s", orderID, current, requested).WithOrder(orderID)
}

// NewAlreadyTerminalError reports an operation against a CLOSED or CANCELLED order
func NewAlreadyTerminalError(orderID uuid.UUID, status OrderStatus, operation string) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeInvalidTransition,
		"cannot %s order %s: order is already %s", operation, orderID, status).WithOrder(orderID)
}

// NewHeldOrderError reports an operation blocked by a hold
func NewHeldOrderError(orderID uuid.UUID, reason HoldReason, operation string) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeHeldOrder,
		"cannot %s order %s: order is on hold (%s)", operation, orderID, reason).WithOrder(orderID)
}

// NewNotOnHoldError reports a release against an order that is not held
func NewNotOnHoldError(orderID uuid.UUID, status OrderStatus) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeNotOnHold,
		"order %s is not on hold (status %s)", orderID, status).WithOrder(orderID)
}

// NewValidationError reports missing or malformed input
func NewValidationError(orderID uuid.UUID, format string, args ...any) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeValidation, format, args...).WithOrder(orderID)
}

// NewOrderNotFoundError reports an unknown order id
func NewOrderNotFoundError(orderID uuid.UUID) *shared.DomainError {
	return shared.NewDomainErrorf(shared.CodeNotFound, "order %s not found", orderID).WithOrder(orderID)
}
