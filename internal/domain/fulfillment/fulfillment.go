package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackingInfo identifies a shipment with a carrier
type TrackingInfo struct {
	Number  string
	Carrier string
	URL     string
}

// Normalize trims every field
func (t TrackingInfo) Normalize() TrackingInfo {
	return TrackingInfo{
		Number:  strings.TrimSpace(t.Number),
		Carrier: strings.TrimSpace(t.Carrier),
		URL:     strings.TrimSpace(t.URL),
	}
}

// TrackingEntry is a tracking record attached to an order
type TrackingEntry struct {
	ID               uuid.UUID
	TrackingNumber   string
	CarrierName      string
	TrackingURL      string
	NotifiedCustomer bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FulfillmentLine is a quantity of one line item shipped in a fulfillment
type FulfillmentLine struct {
	LineItemID uuid.UUID
	Quantity   int
}

// FulfillmentRequest is the createFulfillment command
type FulfillmentRequest struct {
	OrderID        uuid.UUID
	Lines          []FulfillmentLine
	Carrier        string
	Tracking       *TrackingInfo
	ShippingMethod string
	NotifyCustomer bool
	PerformedBy    string
}

// Fulfillment is the durable record of shipped quantities
type Fulfillment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Lines          []FulfillmentLine
	Carrier        string
	TrackingNumber string
	TrackingURL    string
	ShippingMethod string
	NotifyCustomer bool
	CreatedBy      string
	CreatedAt      time.Time
}

// TotalQuantity returns the number of units in the fulfillment
func (f *Fulfillment) TotalQuantity() int {
	total := 0
	for _, l := range f.Lines {
		total += l.Quantity
	}
	return total
}

// FulfillmentCreator issues createFulfillment against the authoritative store
type FulfillmentCreator interface {
	CreateFulfillment(ctx context.Context, req FulfillmentRequest) (*Fulfillment, error)
}
