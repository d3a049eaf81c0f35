package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ==================== Order DTOs ====================

// CreateOrderRequest ingests a channel order
type CreateOrderRequest struct {
	OrderNumber     string                 `json:"order_number" binding:"required,min=1,max=100"`
	LocationID      string                 `json:"location_id" binding:"max=100"`
	ShippingAddress valueobject.AddressDTO `json:"shipping_address"`
	LineItems       []CreateLineItemInput  `json:"line_items" binding:"required,min=1,dive"`
}

// CreateLineItemInput is one ordered line
type CreateLineItemInput struct {
	SKU         string `json:"sku" binding:"required,min=1,max=100"`
	ProductName string `json:"product_name" binding:"max=200"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

// ScheduleOrderRequest defers fulfillment until FulfillAt
type ScheduleOrderRequest struct {
	FulfillAt time.Time `json:"fulfill_at" binding:"required"`
}

// HoldOrderRequest places an order on hold
type HoldOrderRequest struct {
	Reason string `json:"reason" binding:"required,hold_reason"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// FulfillLineInput is a quantity of one line item to ship
type FulfillLineInput struct {
	LineItemID uuid.UUID `json:"line_item_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,gt=0"`
}

// FulfillOrderRequest records a shipment. No lines means every remaining unit.
type FulfillOrderRequest struct {
	Lines          []FulfillLineInput `json:"lines" binding:"omitempty,dive"`
	Carrier        string             `json:"carrier" binding:"max=100"`
	TrackingNumber string             `json:"tracking_number" binding:"max=100"`
	TrackingURL    string             `json:"tracking_url" binding:"omitempty,url"`
	ShippingMethod string             `json:"shipping_method" binding:"max=100"`
	NotifyCustomer bool               `json:"notify_customer"`
}

// UpdateTrackingRequest sets the tracking on the latest tracking entry
type UpdateTrackingRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required,max=100"`
	Carrier        string `json:"carrier" binding:"max=100"`
	TrackingURL    string `json:"tracking_url" binding:"omitempty,url"`
	NotifyCustomer bool   `json:"notify_customer"`
}

// MoveLocationRequest reassigns the fulfillment location
type MoveLocationRequest struct {
	LocationID string `json:"location_id" binding:"required,max=100"`
}

// SubmitRequestRequest submits the order to the fulfiller
type SubmitRequestRequest struct {
	Message        string `json:"message" binding:"max=1000"`
	NotifyMerchant bool   `json:"notify_merchant"`
}

// ReasonRequest carries the reason for a rejection or direct cancel
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// MessageRequest carries an optional message for a handshake step
type MessageRequest struct {
	Message string `json:"message" binding:"max=1000"`
}

// OrderListFilter narrows order listings
type OrderListFilter struct {
	Status        string `form:"status" binding:"omitempty,order_status"`
	RequestStatus string `form:"request_status"`
	LocationID    string `form:"location_id"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by" binding:"omitempty,oneof=created_at updated_at order_number status"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LineItemResponse is a line item view
type LineItemResponse struct {
	ID                uuid.UUID `json:"id"`
	SKU               string    `json:"sku"`
	ProductName       string    `json:"product_name"`
	Quantity          int       `json:"quantity"`
	FulfilledQuantity int       `json:"fulfilled_quantity"`
	RemainingQuantity int       `json:"remaining_quantity"`
}

// TrackingEntryResponse is a tracking entry view
type TrackingEntryResponse struct {
	ID               uuid.UUID `json:"id"`
	TrackingNumber   string    `json:"tracking_number"`
	CarrierName      string    `json:"carrier_name"`
	TrackingURL      string    `json:"tracking_url"`
	NotifiedCustomer bool      `json:"notified_customer"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OrderResponse is the authoritative order view returned by every command
type OrderResponse struct {
	ID              uuid.UUID               `json:"id"`
	OrderNumber     string                  `json:"order_number"`
	LocationID      string                  `json:"location_id"`
	Status          string                  `json:"status"`
	RequestStatus   string                  `json:"request_status"`
	RequestReason   string                  `json:"request_reason,omitempty"`
	HoldReason      *string                 `json:"hold_reason,omitempty"`
	HoldNotes       string                  `json:"hold_notes,omitempty"`
	ShippingAddress valueobject.AddressDTO  `json:"shipping_address"`
	LineItems       []LineItemResponse      `json:"line_items"`
	TrackingEntries []TrackingEntryResponse `json:"tracking_entries"`
	FulfillAt       *time.Time              `json:"fulfill_at,omitempty"`
	ClosedAt        *time.Time              `json:"closed_at,omitempty"`
	CancelledAt     *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Version         int                     `json:"version"`
}

// FulfillmentResponse is a recorded fulfillment
type FulfillmentResponse struct {
	ID             uuid.UUID          `json:"id"`
	OrderID        uuid.UUID          `json:"order_id"`
	Lines          []FulfillLineInput `json:"lines"`
	Quantity       int                `json:"quantity"`
	Carrier        string             `json:"carrier,omitempty"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	TrackingURL    string             `json:"tracking_url,omitempty"`
	ShippingMethod string             `json:"shipping_method,omitempty"`
	NotifyCustomer bool               `json:"notify_customer"`
	CreatedBy      string             `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
}

// FulfillOrderResponse pairs the new fulfillment with the updated order
type FulfillOrderResponse struct {
	Order       OrderResponse       `json:"order"`
	Fulfillment FulfillmentResponse `json:"fulfillment"`
}

// AuditEntryResponse is one timeline entry
type AuditEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	ActionType    string    `json:"action_type"`
	PreviousValue string    `json:"previous_value"`
	NewValue      string    `json:"new_value"`
	Notes         string    `json:"notes,omitempty"`
	PerformedBy   string    `json:"performed_by"`
	PerformedAt   time.Time `json:"performed_at"`
	Sequence      int64     `json:"sequence"`
}

// ToOrderResponse converts the aggregate to its response view
func ToOrderResponse(o *fulfillment.FulfillmentOrder) OrderResponse {
	items := make([]LineItemResponse, len(o.LineItems))
	for i, l := range o.LineItems {
		items[i] = LineItemResponse{
			ID:                l.ID,
			SKU:               l.SKU,
			ProductName:       l.ProductName,
			Quantity:          l.Quantity,
			FulfilledQuantity: l.FulfilledQuantity,
			RemainingQuantity: l.RemainingQuantity(),
		}
	}
	tracking := make([]TrackingEntryResponse, len(o.TrackingEntries))
	for i, t := range o.TrackingEntries {
		tracking[i] = TrackingEntryResponse{
			ID:               t.ID,
			TrackingNumber:   t.TrackingNumber,
			CarrierName:      t.CarrierName,
			TrackingURL:      t.TrackingURL,
			NotifiedCustomer: t.NotifiedCustomer,
			UpdatedAt:        t.UpdatedAt,
		}
	}

	resp := OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		LocationID:      o.LocationID,
		Status:          o.Status.String(),
		RequestStatus:   o.RequestStatus.String(),
		RequestReason:   o.RequestReason,
		HoldNotes:       o.HoldNotes,
		ShippingAddress: o.ShippingAddress.ToDTO(),
		LineItems:       items,
		TrackingEntries: tracking,
		FulfillAt:       o.FulfillAt,
		ClosedAt:        o.ClosedAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
	if o.HoldReason != nil {
		reason := o.HoldReason.String()
		resp.HoldReason = &reason
	}
	return resp
}

// ToOrderResponses converts a page of orders
func ToOrderResponses(orders []fulfillment.FulfillmentOrder) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToFulfillmentResponse converts a fulfillment record
func ToFulfillmentResponse(f *fulfillment.Fulfillment) FulfillmentResponse {
	lines := make([]FulfillLineInput, len(f.Lines))
	for i, l := range f.Lines {
		lines[i] = FulfillLineInput{LineItemID: l.LineItemID, Quantity: l.Quantity}
	}
	return FulfillmentResponse{
		ID:             f.ID,
		OrderID:        f.OrderID,
		Lines:          lines,
		Quantity:       f.TotalQuantity(),
		Carrier:        f.Carrier,
		TrackingNumber: f.TrackingNumber,
		TrackingURL:    f.TrackingURL,
		ShippingMethod: f.ShippingMethod,
		NotifyCustomer: f.NotifyCustomer,
		CreatedBy:      f.CreatedBy,
		CreatedAt:      f.CreatedAt,
	}
}

// ToAuditEntryResponses converts a timeline
func ToAuditEntryResponses(entries []fulfillment.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:            e.ID,
			ActionType:    e.ActionType.String(),
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			Notes:         e.Notes,
			PerformedBy:   e.PerformedBy,
			PerformedAt:   e.PerformedAt,
			Sequence:      e.Sequence,
		}
	}
	return out
}

// ==================== Bulk DTOs ====================

// BulkFulfillRequest fulfills every remaining unit of each order
type BulkFulfillRequest struct {
	OrderIDs       []uuid.UUID `json:"order_ids"`
	NotifyCustomer bool        `json:"notify_customer"`
}

// BulkHoldRequest holds each order with one reason
type BulkHoldRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
	Reason   string      `json:"reason" binding:"required,hold_reason"`
	Notes    string      `json:"notes" binding:"max=1000"`
}

// BulkReleaseRequest releases each order's hold
type BulkReleaseRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
}

// BulkTrackingInput is the tracking for one order of a bulk update
type BulkTrackingInput struct {
	OrderID        uuid.UUID `json:"order_id" binding:"required"`
	TrackingNumber string    `json:"tracking_number" binding:"max=100"`
	Carrier        string    `json:"carrier" binding:"max=100"`
	TrackingURL    string    `json:"tracking_url" binding:"omitempty,url"`
}

// BulkTrackingUpdateRequest updates tracking order by order
type BulkTrackingUpdateRequest struct {
	Updates        []BulkTrackingInput `json:"updates" binding:"dive"`
	NotifyCustomer bool                `json:"notify_customer"`
}

// BulkOperationError is one failed order of a bulk call
type BulkOperationError struct {
	OrderID uuid.UUID `json:"order_id"`
	Error   string    `json:"error"`
	Code    string    `json:"code"`
}

// BulkOperationResult aggregates a bulk call. Errors follow input order.
type BulkOperationResult struct {
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Errors    []BulkOperationError `json:"errors"`
	Success   bool                 `json:"success"`
}

// ==================== Pick session DTOs ====================

// ScanRequest is a scanned barcode
type ScanRequest struct {
	SKU string `json:"sku" binding:"required,max=100"`
}

// AdjustLineRequest targets one session line
type AdjustLineRequest struct {
	LineItemID uuid.UUID `json:"line_item_id" binding:"required"`
}

// PackCheckInput ticks or clears one checklist item
type PackCheckInput struct {
	Index int  `json:"index" binding:"min=0"`
	Done  bool `json:"done"`
}

// PackRequest updates the PACK step
type PackRequest struct {
	Checks []PackCheckInput `json:"checks" binding:"omitempty,dive"`
	Notes  *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ShippingRequest sets the SHIP step's carrier and tracking
type ShippingRequest struct {
	Carrier           string `json:"carrier" binding:"required,max=100"`
	TrackingNumber    string `json:"tracking_number" binding:"max=100"`
	TrackingURL       string `json:"tracking_url" binding:"omitempty,url"`
	WarehouseMethodID string `json:"warehouse_method_id" binding:"max=100"`
	NotifyCustomer    bool   `json:"notify_customer"`
}

// PickLineResponse is one session line
type PickLineResponse struct {
	LineItemID      uuid.UUID `json:"line_item_id"`
	SKU             string    `json:"sku"`
	ProductName     string    `json:"product_name"`
	OrderedQuantity int       `json:"ordered_quantity"`
	PickedQuantity  int       `json:"picked_quantity"`
	Verified        bool      `json:"verified"`
}

// PackCheckResponse is one checklist item
type PackCheckResponse struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// ShippingSelectionResponse is the SHIP step state
type ShippingSelectionResponse struct {
	Carrier           string `json:"carrier,omitempty"`
	TrackingNumber    string `json:"tracking_number,omitempty"`
	TrackingURL       string `json:"tracking_url,omitempty"`
	WarehouseMethodID string `json:"warehouse_method_id,omitempty"`
	ChannelMethodName string `json:"channel_method_name,omitempty"`
	NotifyCustomer    bool   `json:"notify_customer"`
}

// PickSessionResponse is the wizard state addressed by its handle
type PickSessionResponse struct {
	ID              uuid.UUID                 `json:"id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	OrderNumber     string                    `json:"order_number"`
	Operator        string                    `json:"operator"`
	Phase           string                    `json:"phase"`
	Lines           []PickLineResponse        `json:"lines"`
	AllItemsPicked  bool                      `json:"all_items_picked"`
	PackChecklist   []PackCheckResponse       `json:"pack_checklist"`
	PackNotes       string                    `json:"pack_notes,omitempty"`
	ShippingAddress valueobject.AddressDTO    `json:"shipping_address"`
	Shipping        ShippingSelectionResponse `json:"shipping"`
	LastError       string                    `json:"last_error,omitempty"`
	FulfillmentID   *uuid.UUID                `json:"fulfillment_id,omitempty"`
	StartedAt       time.Time                 `json:"started_at"`
	LastActivityAt  time.Time                 `json:"last_activity_at"`
}

// ToPickSessionResponse converts a session
func ToPickSessionResponse(s *fulfillment.PickSession) PickSessionResponse {
	lines := make([]PickLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = PickLineResponse{
			LineItemID:      l.LineItemID,
			SKU:             l.SKU,
			ProductName:     l.ProductName,
			OrderedQuantity: l.OrderedQuantity,
			PickedQuantity:  l.PickedQuantity,
			Verified:        l.Verified(),
		}
	}
	checks := make([]PackCheckResponse, len(s.PackChecklist))
	for i, c := range s.PackChecklist {
		checks[i] = PackCheckResponse{Label: c.Label, Done: c.Done}
	}
	return PickSessionResponse{
		ID:              s.ID,
		OrderID:         s.OrderID,
		OrderNumber:     s.OrderNumber,
		Operator:        s.Operator,
		Phase:           s.Phase.String(),
		Lines:           lines,
		AllItemsPicked:  s.AllItemsPicked(),
		PackChecklist:   checks,
		PackNotes:       s.PackNotes,
		ShippingAddress: s.ShippingAddress.ToDTO(),
		Shipping: ShippingSelectionResponse{
			Carrier:           s.Shipping.Carrier,
			TrackingNumber:    s.Shipping.TrackingNumber,
			TrackingURL:       s.Shipping.TrackingURL,
			WarehouseMethodID: s.Shipping.WarehouseMethodID,
			ChannelMethodName: s.Shipping.ChannelMethodName,
			NotifyCustomer:    s.Shipping.NotifyCustomer,
		},
		LastError:      s.LastError,
		FulfillmentID:  s.FulfillmentID,
		StartedAt:      s.StartedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// ==================== Shipping method DTOs ====================

// ShippingMethodEntryInput maps one warehouse method to a channel method
type ShippingMethodEntryInput struct {
	WarehouseMethodID string `json:"warehouse_method_id" binding:"required"`
	ChannelMethodName string `json:"channel_method_name" binding:"required"`
}

// ReplaceShippingMethodsRequest replaces a location's whole mapping
type ReplaceShippingMethodsRequest struct {
	Entries []ShippingMethodEntryInput `json:"entries" binding:"dive"`
}

// ShippingMethodMappingResponse is a location's mapping plus the catalogs it is validated against
type ShippingMethodMappingResponse struct {
	LocationID       string                     `json:"location_id"`
	Entries          []ShippingMethodEntryInput `json:"entries"`
	WarehouseMethods []string                   `json:"warehouse_methods"`
	ChannelMethods   []string                   `json:"channel_methods"`
}
