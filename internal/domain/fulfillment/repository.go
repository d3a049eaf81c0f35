package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	Status        OrderStatus
	RequestStatus RequestStatus
	LocationID    string
}

// OrderRepository is the persistence collaborator for fulfillment orders
type OrderRepository interface {
	// FindByID loads an order with its line items and tracking entries.
	// Returns shared.ErrNotFound when the id is unknown.
	FindByID(ctx context.Context, id uuid.UUID) (*FulfillmentOrder, error)

	// FindAll lists orders matching the filter
	FindAll(ctx context.Context, filter OrderFilter) ([]FulfillmentOrder, int64, error)

	// Create persists a newly ingested order
	Create(ctx context.Context, order *FulfillmentOrder) error

	// SaveWithLock persists status, hold, request, location and tracking state
	// with an optimistic version check, and in the same transaction appends the
	// order's pending audit entries and pending fulfillments.
	SaveWithLock(ctx context.Context, order *FulfillmentOrder) error
}

// AuditRepository reads the audit trail. Entries are written only by
// FulfillmentOrderRepository, in the transaction that saves the order.
type AuditRepository interface {
	// FindByOrderID returns an order's entries ordered by PerformedAt then Sequence
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]AuditEntry, error)
}

// FulfillmentRepository reads recorded fulfillments
type FulfillmentRepository interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]Fulfillment, error)
}

// ShippingMethodMappingRepository persists per-location shipping method mappings
type ShippingMethodMappingRepository interface {
	FindByLocation(ctx context.Context, locationID string) ([]ShippingMethodMappingEntry, error)

	// Replace overwrites the stored entries for a location
	Replace(ctx context.Context, locationID string, entries []ShippingMethodMappingEntry) error
}
