package fulfillment

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeFulfillmentOrder is the aggregate type name used on events
const AggregateTypeFulfillmentOrder = "FulfillmentOrder"

// Event type constants
const (
	EventTypeOrderHeld             = "FulfillmentOrderHeld"
	EventTypeOrderReleased         = "FulfillmentOrderReleased"
	EventTypeOrderStatusChanged    = "FulfillmentOrderStatusChanged"
	EventTypeOrderCancelled        = "FulfillmentOrderCancelled"
	EventTypeLocationChanged       = "FulfillmentOrderLocationChanged"
	EventTypeFulfillmentCreated    = "FulfillmentCreated"
	EventTypeTrackingUpdated       = "FulfillmentTrackingUpdated"
	EventTypeRequestSubmitted      = "FulfillmentRequestSubmitted"
	EventTypeRequestAccepted       = "FulfillmentRequestAccepted"
	EventTypeRequestRejected       = "FulfillmentRequestRejected"
	EventTypeCancellationRequested = "FulfillmentCancellationRequested"
	EventTypeCancellationAccepted  = "FulfillmentCancellationAccepted"
	EventTypeCancellationRejected  = "FulfillmentCancellationRejected"
)

// OrderTransitionedEvent is raised for every accepted transition that has no
// richer payload. It mirrors the audit entry written for the same transition.
type OrderTransitionedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID  `json:"order_id"`
	OrderNumber   string     `json:"order_number"`
	Action        ActionType `json:"action"`
	PreviousValue string     `json:"previous_value"`
	NewValue      string     `json:"new_value"`
	Notes         string     `json:"notes,omitempty"`
	PerformedBy   string     `json:"performed_by"`
}

func newTransitionedEvent(eventType string, o *FulfillmentOrder, entry AuditEntry) *OrderTransitionedEvent {
	return &OrderTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeFulfillmentOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Action:          entry.ActionType,
		PreviousValue:   entry.PreviousValue,
		NewValue:        entry.NewValue,
		Notes:           entry.Notes,
		PerformedBy:     entry.PerformedBy,
	}
}

// FulfillmentCreatedEvent is raised when shipped quantities are recorded.
// Consumers notify the customer when NotifyCustomer is set.
type FulfillmentCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	FulfillmentID  uuid.UUID   `json:"fulfillment_id"`
	Status         OrderStatus `json:"status"`
	Quantity       int         `json:"quantity"`
	Carrier        string      `json:"carrier,omitempty"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	TrackingURL    string      `json:"tracking_url,omitempty"`
	NotifyCustomer bool        `json:"notify_customer"`
}

func newFulfillmentCreatedEvent(o *FulfillmentOrder, f *Fulfillment) *FulfillmentCreatedEvent {
	return &FulfillmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFulfillmentCreated, AggregateTypeFulfillmentOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		FulfillmentID:   f.ID,
		Status:          o.Status,
		Quantity:        f.TotalQuantity(),
		Carrier:         f.Carrier,
		TrackingNumber:  f.TrackingNumber,
		TrackingURL:     f.TrackingURL,
		NotifyCustomer:  f.NotifyCustomer,
	}
}

// TrackingUpdatedEvent is raised when the latest tracking entry changes
type TrackingUpdatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier,omitempty"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
	NotifyCustomer bool      `json:"notify_customer"`
}

func newTrackingUpdatedEvent(o *FulfillmentOrder, entry TrackingEntry, notify bool) *TrackingUpdatedEvent {
	return &TrackingUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTrackingUpdated, AggregateTypeFulfillmentOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		TrackingNumber:  entry.TrackingNumber,
		Carrier:         entry.CarrierName,
		TrackingURL:     entry.TrackingURL,
		NotifyCustomer:  notify,
	}
}

// RequestSubmittedEvent is raised when the merchant submits the order to the fulfiller
type RequestSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	LocationID     string    `json:"location_id"`
	Message        string    `json:"message,omitempty"`
	NotifyMerchant bool      `json:"notify_merchant"`
}

func newRequestSubmittedEvent(o *FulfillmentOrder, message string, notify bool) *RequestSubmittedEvent {
	return &RequestSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestSubmitted, AggregateTypeFulfillmentOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		LocationID:      o.LocationID,
		Message:         message,
		NotifyMerchant:  notify,
	}
}
