package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FulfillmentOrderModel is the persistence model for the FulfillmentOrder aggregate root
type FulfillmentOrderModel struct {
	AggregateModel
	OrderNumber        string                    `gorm:"type:varchar(100);not null;uniqueIndex"`
	LocationID         string                    `gorm:"type:varchar(100);index"`
	Status             fulfillment.OrderStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	RequestStatus      fulfillment.RequestStatus `gorm:"type:varchar(30);not null;default:'UNSUBMITTED';index"`
	RequestReason      string                    `gorm:"type:text"`
	HoldReason         *fulfillment.HoldReason   `gorm:"type:varchar(30)"`
	HoldNotes          string                    `gorm:"type:text"`
	HoldPreviousStatus *fulfillment.OrderStatus  `gorm:"type:varchar(20)"`
	ShippingAddress    valueobject.Address       `gorm:"type:text"`
	FulfillAt          *time.Time
	ClosedAt           *time.Time
	CancelledAt        *time.Time
	LineItems          []LineItemModel      `gorm:"foreignKey:OrderID;references:ID"`
	TrackingEntries    []TrackingEntryModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (FulfillmentOrderModel) TableName() string {
	return "fulfillment_orders"
}

// ToDomain converts the persistence model to a domain FulfillmentOrder
func (m *FulfillmentOrderModel) ToDomain() *fulfillment.FulfillmentOrder {
	order := &fulfillment.FulfillmentOrder{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		OrderNumber:        m.OrderNumber,
		LocationID:         m.LocationID,
		Status:             m.Status,
		RequestStatus:      m.RequestStatus,
		RequestReason:      m.RequestReason,
		HoldReason:         m.HoldReason,
		HoldNotes:          m.HoldNotes,
		HoldPreviousStatus: m.HoldPreviousStatus,
		ShippingAddress:    m.ShippingAddress,
		FulfillAt:          m.FulfillAt,
		ClosedAt:           m.ClosedAt,
		CancelledAt:        m.CancelledAt,
		LineItems:          make([]fulfillment.LineItem, len(m.LineItems)),
		TrackingEntries:    make([]fulfillment.TrackingEntry, len(m.TrackingEntries)),
	}
	for i := range m.LineItems {
		order.LineItems[i] = m.LineItems[i].ToDomain()
	}
	for i := range m.TrackingEntries {
		order.TrackingEntries[i] = m.TrackingEntries[i].ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain FulfillmentOrder
func (m *FulfillmentOrderModel) FromDomain(o *fulfillment.FulfillmentOrder) {
	m.FromDomainAggregateRoot(&o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.LocationID = o.LocationID
	m.Status = o.Status
	m.RequestStatus = o.RequestStatus
	m.RequestReason = o.RequestReason
	m.HoldReason = o.HoldReason
	m.HoldNotes = o.HoldNotes
	m.HoldPreviousStatus = o.HoldPreviousStatus
	m.ShippingAddress = o.ShippingAddress
	m.FulfillAt = o.FulfillAt
	m.ClosedAt = o.ClosedAt
	m.CancelledAt = o.CancelledAt
	m.LineItems = make([]LineItemModel, len(o.LineItems))
	for i, l := range o.LineItems {
		m.LineItems[i] = LineItemFromDomain(o.ID, i, l)
	}
	m.TrackingEntries = make([]TrackingEntryModel, len(o.TrackingEntries))
	for i, t := range o.TrackingEntries {
		m.TrackingEntries[i] = TrackingEntryFromDomain(o.ID, t)
	}
}

// FulfillmentOrderModelFromDomain creates a new persistence model from the domain aggregate
func FulfillmentOrderModelFromDomain(o *fulfillment.FulfillmentOrder) *FulfillmentOrderModel {
	m := &FulfillmentOrderModel{}
	m.FromDomain(o)
	return m
}

// LineItemModel is an ordered product line
type LineItemModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Position          int       `gorm:"not null;default:0"`
	SKU               string    `gorm:"column:sku;type:varchar(100);not null"`
	ProductName       string    `gorm:"type:varchar(200)"`
	Quantity          int       `gorm:"not null"`
	FulfilledQuantity int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "fulfillment_line_items"
}

// ToDomain converts the model to a domain LineItem
func (m *LineItemModel) ToDomain() fulfillment.LineItem {
	return fulfillment.LineItem{
		ID:                m.ID,
		SKU:               m.SKU,
		ProductName:       m.ProductName,
		Quantity:          m.Quantity,
		FulfilledQuantity: m.FulfilledQuantity,
	}
}

// LineItemFromDomain creates a line item model keeping the order's line position
func LineItemFromDomain(orderID uuid.UUID, position int, l fulfillment.LineItem) LineItemModel {
	return LineItemModel{
		ID:                l.ID,
		OrderID:           orderID,
		Position:          position,
		SKU:               l.SKU,
		ProductName:       l.ProductName,
		Quantity:          l.Quantity,
		FulfilledQuantity: l.FulfilledQuantity,
	}
}

// TrackingEntryModel is a tracking record attached to an order
type TrackingEntryModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID `gorm:"type:uuid;not null;index"`
	TrackingNumber   string    `gorm:"type:varchar(100);not null"`
	CarrierName      string    `gorm:"type:varchar(100)"`
	TrackingURL      string    `gorm:"column:tracking_url;type:text"`
	NotifiedCustomer bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrackingEntryModel) TableName() string {
	return "fulfillment_tracking_entries"
}

// ToDomain converts the model to a domain TrackingEntry
func (m *TrackingEntryModel) ToDomain() fulfillment.TrackingEntry {
	return fulfillment.TrackingEntry{
		ID:               m.ID,
		TrackingNumber:   m.TrackingNumber,
		CarrierName:      m.CarrierName,
		TrackingURL:      m.TrackingURL,
		NotifiedCustomer: m.NotifiedCustomer,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// TrackingEntryFromDomain creates a tracking entry model
func TrackingEntryFromDomain(orderID uuid.UUID, t fulfillment.TrackingEntry) TrackingEntryModel {
	return TrackingEntryModel{
		ID:               t.ID,
		OrderID:          orderID,
		TrackingNumber:   t.TrackingNumber,
		CarrierName:      t.CarrierName,
		TrackingURL:      t.TrackingURL,
		NotifiedCustomer: t.NotifiedCustomer,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// FulfillmentModel is the durable record of one shipment
type FulfillmentModel struct {
	ID             uuid.UUID              `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	Carrier        string                 `gorm:"type:varchar(100)"`
	TrackingNumber string                 `gorm:"type:varchar(100)"`
	TrackingURL    string                 `gorm:"column:tracking_url;type:text"`
	ShippingMethod string                 `gorm:"type:varchar(100)"`
	NotifyCustomer bool                   `gorm:"not null;default:false"`
	CreatedBy      string                 `gorm:"type:varchar(200);not null"`
	CreatedAt      time.Time              `gorm:"not null;index"`
	Lines          []FulfillmentLineModel `gorm:"foreignKey:FulfillmentID;references:ID"`
}

// TableName returns the table name for GORM
func (FulfillmentModel) TableName() string {
	return "fulfillments"
}

// ToDomain converts the model to a domain Fulfillment
func (m *FulfillmentModel) ToDomain() fulfillment.Fulfillment {
	f := fulfillment.Fulfillment{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Carrier:        m.Carrier,
		TrackingNumber: m.TrackingNumber,
		TrackingURL:    m.TrackingURL,
		ShippingMethod: m.ShippingMethod,
		NotifyCustomer: m.NotifyCustomer,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
		Lines:          make([]fulfillment.FulfillmentLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		f.Lines[i] = fulfillment.FulfillmentLine{LineItemID: l.LineItemID, Quantity: l.Quantity}
	}
	return f
}

// FulfillmentFromDomain creates a fulfillment model with its lines
func FulfillmentFromDomain(f fulfillment.Fulfillment) *FulfillmentModel {
	m := &FulfillmentModel{
		ID:             f.ID,
		OrderID:        f.OrderID,
		Carrier:        f.Carrier,
		TrackingNumber: f.TrackingNumber,
		TrackingURL:    f.TrackingURL,
		ShippingMethod: f.ShippingMethod,
		NotifyCustomer: f.NotifyCustomer,
		CreatedBy:      f.CreatedBy,
		CreatedAt:      f.CreatedAt,
		Lines:          make([]FulfillmentLineModel, len(f.Lines)),
	}
	for i, l := range f.Lines {
		m.Lines[i] = FulfillmentLineModel{
			ID:            uuid.New(),
			FulfillmentID: f.ID,
			LineItemID:    l.LineItemID,
			Position:      i,
			Quantity:      l.Quantity,
		}
	}
	return m
}

// FulfillmentLineModel is a quantity of one line item in a fulfillment
type FulfillmentLineModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	FulfillmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	LineItemID    uuid.UUID `gorm:"type:uuid;not null"`
	Position      int       `gorm:"not null;default:0"`
	Quantity      int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FulfillmentLineModel) TableName() string {
	return "fulfillment_lines"
}

// AuditEntryModel is one append-only audit record. Seq is assigned by the database.
type AuditEntryModel struct {
	Seq           int64                  `gorm:"primaryKey;autoIncrement"`
	ID            uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	OrderID       uuid.UUID              `gorm:"type:uuid;not null;index:idx_audit_order_time,priority:1"`
	ActionType    fulfillment.ActionType `gorm:"type:varchar(30);not null"`
	PreviousValue string                 `gorm:"type:text"`
	NewValue      string                 `gorm:"type:text"`
	Notes         string                 `gorm:"type:text"`
	PerformedBy   string                 `gorm:"type:varchar(200);not null"`
	PerformedAt   time.Time              `gorm:"not null;index:idx_audit_order_time,priority:2"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "fulfillment_audit_entries"
}

// ToDomain converts the model to a domain AuditEntry
func (m *AuditEntryModel) ToDomain() fulfillment.AuditEntry {
	return fulfillment.AuditEntry{
		ID:            m.ID,
		OrderID:       m.OrderID,
		ActionType:    m.ActionType,
		PreviousValue: m.PreviousValue,
		NewValue:      m.NewValue,
		Notes:         m.Notes,
		PerformedBy:   m.PerformedBy,
		PerformedAt:   m.PerformedAt,
		Sequence:      m.Seq,
	}
}

// AuditEntryFromDomain creates an audit model; Seq is left for the database
func AuditEntryFromDomain(e fulfillment.AuditEntry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:            e.ID,
		OrderID:       e.OrderID,
		ActionType:    e.ActionType,
		PreviousValue: e.PreviousValue,
		NewValue:      e.NewValue,
		Notes:         e.Notes,
		PerformedBy:   e.PerformedBy,
		PerformedAt:   e.PerformedAt,
	}
}

// ShippingMethodMappingModel is one warehouse -> channel shipping method pair of a location
type ShippingMethodMappingModel struct {
	LocationID        string    `gorm:"type:varchar(100);primaryKey"`
	WarehouseMethodID string    `gorm:"type:varchar(100);primaryKey"`
	ChannelMethodName string    `gorm:"type:varchar(100);not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShippingMethodMappingModel) TableName() string {
	return "shipping_method_mappings"
}

// AllModels lists every model for AutoMigrate in tests and local sqlite runs
func AllModels() []any {
	return []any{
		&FulfillmentOrderModel{},
		&LineItemModel{},
		&TrackingEntryModel{},
		&FulfillmentModel{},
		&FulfillmentLineModel{},
		&AuditEntryModel{},
		&ShippingMethodMappingModel{},
	}
}
