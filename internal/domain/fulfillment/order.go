package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// LineItem is an ordered product line. Quantity is fixed at creation and is
// the ceiling for picking and fulfillment.
type LineItem struct {
	ID                uuid.UUID
	SKU               string
	ProductName       string
	Quantity          int
	FulfilledQuantity int
}

// RemainingQuantity returns the units not yet fulfilled
func (l LineItem) RemainingQuantity() int {
	return l.Quantity - l.FulfilledQuantity
}

// NewLineItem is the input for a line on order ingestion
type NewLineItem struct {
	SKU         string
	ProductName string
	Quantity    int
}

// FulfillmentOrder is the aggregate root for a single order's fulfillment lifecycle.
// HoldReason is set if and only if Status is ON_HOLD.
type FulfillmentOrder struct {
	shared.BaseAggregateRoot
	OrderNumber        string
	LocationID         string
	Status             OrderStatus
	RequestStatus      RequestStatus
	RequestReason      string
	HoldReason         *HoldReason
	HoldNotes          string
	HoldPreviousStatus *OrderStatus
	ShippingAddress    valueobject.Address
	LineItems          []LineItem
	TrackingEntries    []TrackingEntry
	FulfillAt          *time.Time
	ClosedAt           *time.Time
	CancelledAt        *time.Time

	pendingAudit        []AuditEntry
	pendingFulfillments []Fulfillment
}

// NewFulfillmentOrder creates an OPEN, UNSUBMITTED order from an ingested channel order
func NewFulfillmentOrder(orderNumber, locationID string, address valueobject.Address, lines []NewLineItem) (*FulfillmentOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, NewValidationError(uuid.Nil, "order number is required")
	}
	if len(lines) == 0 {
		return nil, NewValidationError(uuid.Nil, "order %s has no line items", orderNumber)
	}

	o := &FulfillmentOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		LocationID:        strings.TrimSpace(locationID),
		Status:            StatusOpen,
		RequestStatus:     RequestUnsubmitted,
		ShippingAddress:   address,
		LineItems:         make([]LineItem, 0, len(lines)),
	}

	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		sku := strings.TrimSpace(l.SKU)
		if sku == "" {
			return nil, NewValidationError(o.ID, "line item SKU is required")
		}
		if l.Quantity <= 0 {
			return nil, NewValidationError(o.ID, "line item %s quantity must be positive", sku)
		}
		key := FoldSKU(sku)
		if _, dup := seen[key]; dup {
			return nil, NewValidationError(o.ID, "duplicate line item SKU %s", sku)
		}
		seen[key] = struct{}{}
		o.LineItems = append(o.LineItems, LineItem{
			ID:          uuid.New(),
			SKU:         sku,
			ProductName: strings.TrimSpace(l.ProductName),
			Quantity:    l.Quantity,
		})
	}

	return o, nil
}

// FoldSKU normalizes a SKU for case-insensitive comparison
func FoldSKU(sku string) string {
	return cases.Fold().String(strings.TrimSpace(sku))
}

// =============================================================================
// Queries
// =============================================================================

// IsOnHold reports whether the order is held
func (o *FulfillmentOrder) IsOnHold() bool {
	return o.Status == StatusOnHold
}

// IsTerminal reports whether the order is CLOSED or CANCELLED
func (o *FulfillmentOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// GetLineItem returns the line with the given id, or nil
func (o *FulfillmentOrder) GetLineItem(id uuid.UUID) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].ID == id {
			return &o.LineItems[i]
		}
	}
	return nil
}

// HasFulfillment reports whether any unit has been fulfilled
func (o *FulfillmentOrder) HasFulfillment() bool {
	for _, l := range o.LineItems {
		if l.FulfilledQuantity > 0 {
			return true
		}
	}
	return false
}

// IsFullyFulfilled reports whether every ordered unit has been fulfilled
func (o *FulfillmentOrder) IsFullyFulfilled() bool {
	for _, l := range o.LineItems {
		if l.RemainingQuantity() > 0 {
			return false
		}
	}
	return true
}

// RemainingLines returns one fulfillment line per item with unfulfilled units
func (o *FulfillmentOrder) RemainingLines() []FulfillmentLine {
	lines := make([]FulfillmentLine, 0, len(o.LineItems))
	for _, l := range o.LineItems {
		if r := l.RemainingQuantity(); r > 0 {
			lines = append(lines, FulfillmentLine{LineItemID: l.ID, Quantity: r})
		}
	}
	return lines
}

// LatestTracking returns the most recent tracking entry, or nil
func (o *FulfillmentOrder) LatestTracking() *TrackingEntry {
	if len(o.TrackingEntries) == 0 {
		return nil
	}
	return &o.TrackingEntries[len(o.TrackingEntries)-1]
}

// PendingAuditEntries returns audit entries recorded since the last save
func (o *FulfillmentOrder) PendingAuditEntries() []AuditEntry {
	return o.pendingAudit
}

// PendingFulfillments returns fulfillments recorded since the last save
func (o *FulfillmentOrder) PendingFulfillments() []Fulfillment {
	return o.pendingFulfillments
}

// ClearPending drops recorded audit entries and fulfillments once persisted
func (o *FulfillmentOrder) ClearPending() {
	o.pendingAudit = nil
	o.pendingFulfillments = nil
}

// =============================================================================
// Guards
// =============================================================================

func (o *FulfillmentOrder) ensureNotTerminal(operation string) error {
	if o.Status.IsTerminal() {
		return NewAlreadyTerminalError(o.ID, o.Status, operation)
	}
	return nil
}

// ensureActive rejects terminal and held orders
func (o *FulfillmentOrder) ensureActive(operation string) error {
	if err := o.ensureNotTerminal(operation); err != nil {
		return err
	}
	if o.IsOnHold() {
		return NewHeldOrderError(o.ID, o.holdReason(), operation)
	}
	return nil
}

func (o *FulfillmentOrder) holdReason() HoldReason {
	if o.HoldReason == nil {
		return ""
	}
	return *o.HoldReason
}

func (o *FulfillmentOrder) record(action ActionType, previous, next, notes, by string) AuditEntry {
	entry := newAuditEntry(o.ID, action, previous, next, notes, by)
	o.pendingAudit = append(o.pendingAudit, entry)
	o.Touch()
	return entry
}

func (o *FulfillmentOrder) changeStatus(target OrderStatus, notes, by string) error {
	if !o.Status.CanTransitionTo(target) {
		return NewInvalidTransitionError(o.ID, o.Status, target)
	}
	previous := o.Status
	o.Status = target
	if target == StatusClosed {
		now := time.Now()
		o.ClosedAt = &now
	}
	entry := o.record(ActionStatusChange, previous.String(), target.String(), notes, by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeOrderStatusChanged, o, entry))
	return nil
}

// =============================================================================
// Status progression
// =============================================================================

// MarkInProgress moves an OPEN or SCHEDULED order to IN_PROGRESS
func (o *FulfillmentOrder) MarkInProgress(by string) error {
	if err := o.ensureActive("start"); err != nil {
		return err
	}
	return o.changeStatus(StatusInProgress, "", by)
}

// Schedule defers fulfillment of an OPEN or IN_PROGRESS order until fulfillAt
func (o *FulfillmentOrder) Schedule(fulfillAt time.Time, by string) error {
	if err := o.ensureActive("schedule"); err != nil {
		return err
	}
	if fulfillAt.IsZero() {
		return NewValidationError(o.ID, "fulfill-at time is required to schedule order %s", o.OrderNumber)
	}
	if err := o.changeStatus(StatusScheduled, "fulfill at "+fulfillAt.UTC().Format(time.RFC3339), by); err != nil {
		return err
	}
	o.FulfillAt = &fulfillAt
	return nil
}

// Close marks an IN_PROGRESS or SCHEDULED order CLOSED without recording
// further shipments. OPEN orders only close through fulfillment.
func (o *FulfillmentOrder) Close(by string) error {
	if err := o.ensureActive("close"); err != nil {
		return err
	}
	if o.Status == StatusOpen {
		return NewInvalidTransitionError(o.ID, o.Status, StatusClosed)
	}
	return o.changeStatus(StatusClosed, "", by)
}

// =============================================================================
// Hold / release
// =============================================================================

// PlaceHold puts the order ON_HOLD, remembering the status to restore on release
func (o *FulfillmentOrder) PlaceHold(reason HoldReason, notes, by string) error {
	if err := o.ensureNotTerminal("hold"); err != nil {
		return err
	}
	if reason == "" {
		return NewValidationError(o.ID, "hold reason is required")
	}
	if !reason.IsValid() {
		return NewValidationError(o.ID, "unknown hold reason %q", reason)
	}
	if !o.Status.CanTransitionTo(StatusOnHold) {
		return NewInvalidTransitionError(o.ID, o.Status, StatusOnHold)
	}

	previous := o.Status
	o.HoldPreviousStatus = &previous
	o.Status = StatusOnHold
	o.HoldReason = &reason
	o.HoldNotes = strings.TrimSpace(notes)

	entry := o.record(ActionHold, previous.String(), reason.String(), o.HoldNotes, by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeOrderHeld, o, entry))
	return nil
}

// ReleaseHold restores the status held before the hold, or OPEN if unknown
func (o *FulfillmentOrder) ReleaseHold(by string) error {
	if !o.IsOnHold() {
		return NewNotOnHoldError(o.ID, o.Status)
	}

	target := StatusOpen
	if o.HoldPreviousStatus != nil && o.HoldPreviousStatus.IsHoldable() {
		target = *o.HoldPreviousStatus
	}
	reason := o.holdReason()

	o.Status = target
	o.HoldReason = nil
	o.HoldNotes = ""
	o.HoldPreviousStatus = nil

	entry := o.record(ActionRelease, reason.String(), target.String(), "", by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeOrderReleased, o, entry))
	return nil
}

// =============================================================================
// Fulfillment and tracking
// =============================================================================

// CreateFulfillment records shipped quantities. The order becomes CLOSED once
// every unit is fulfilled and IN_PROGRESS otherwise.
func (o *FulfillmentOrder) CreateFulfillment(req FulfillmentRequest) (*Fulfillment, error) {
	if o.IsOnHold() {
		return nil, NewHeldOrderError(o.ID, o.holdReason(), "fulfill")
	}
	if err := o.ensureNotTerminal("fulfill"); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, NewValidationError(o.ID, "fulfillment for order %s has no line items", o.OrderNumber)
	}

	var tracking *TrackingInfo
	if req.Tracking != nil {
		t := req.Tracking.Normalize()
		if t.Number == "" {
			return nil, NewValidationError(o.ID, "tracking number is required when tracking is supplied")
		}
		if t.Carrier == "" {
			t.Carrier = strings.TrimSpace(req.Carrier)
		}
		tracking = &t
	}

	requested := make(map[uuid.UUID]int, len(req.Lines))
	for _, l := range req.Lines {
		item := o.GetLineItem(l.LineItemID)
		if item == nil {
			return nil, NewValidationError(o.ID, "line item %s does not belong to order %s", l.LineItemID, o.OrderNumber)
		}
		if l.Quantity <= 0 {
			return nil, NewValidationError(o.ID, "quantity for %s must be positive", item.SKU)
		}
		requested[l.LineItemID] += l.Quantity
		if requested[l.LineItemID] > item.RemainingQuantity() {
			return nil, NewValidationError(o.ID, "quantity for %s exceeds remaining %d", item.SKU, item.RemainingQuantity())
		}
	}

	for id, qty := range requested {
		o.GetLineItem(id).FulfilledQuantity += qty
	}

	previous := o.Status
	target := StatusInProgress
	if o.IsFullyFulfilled() {
		target = StatusClosed
		now := time.Now()
		o.ClosedAt = &now
	}
	o.Status = target

	f := Fulfillment{
		ID:             uuid.New(),
		OrderID:        o.ID,
		Lines:          append([]FulfillmentLine(nil), req.Lines...),
		Carrier:        strings.TrimSpace(req.Carrier),
		ShippingMethod: strings.TrimSpace(req.ShippingMethod),
		NotifyCustomer: req.NotifyCustomer,
		CreatedBy:      req.PerformedBy,
		CreatedAt:      time.Now(),
	}
	notes := fmt.Sprintf("fulfillment %s: %d unit(s)", f.ID, f.TotalQuantity())
	if tracking != nil {
		f.Carrier = tracking.Carrier
		f.TrackingNumber = tracking.Number
		f.TrackingURL = tracking.URL
		o.TrackingEntries = append(o.TrackingEntries, TrackingEntry{
			ID:               uuid.New(),
			TrackingNumber:   tracking.Number,
			CarrierName:      tracking.Carrier,
			TrackingURL:      tracking.URL,
			NotifiedCustomer: req.NotifyCustomer,
			CreatedAt:        f.CreatedAt,
			UpdatedAt:        f.CreatedAt,
		})
		notes += fmt.Sprintf(", tracking %s via %s", tracking.Number, tracking.Carrier)
	}
	o.pendingFulfillments = append(o.pendingFulfillments, f)

	o.record(ActionFulfillmentCreated, previous.String(), target.String(), notes, req.PerformedBy)
	o.AddDomainEvent(newFulfillmentCreatedEvent(o, &f))
	return &f, nil
}

// UpdateTracking overwrites the latest tracking entry, or adds the first one.
// Only orders with at least one fulfillment can be tracked.
func (o *FulfillmentOrder) UpdateTracking(info TrackingInfo, notifyCustomer bool, by string) error {
	if o.IsOnHold() {
		return NewHeldOrderError(o.ID, o.holdReason(), "update tracking for")
	}
	if o.Status == StatusCancelled {
		return NewAlreadyTerminalError(o.ID, o.Status, "update tracking for")
	}
	info = info.Normalize()
	if info.Number == "" {
		return NewValidationError(o.ID, "tracking number is required")
	}
	if !o.HasFulfillment() {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"order %s has no fulfillment to track (status %s)", o.OrderNumber, o.Status).WithOrder(o.ID)
	}

	now := time.Now()
	previous := ""
	latest := o.LatestTracking()
	if latest == nil {
		o.TrackingEntries = append(o.TrackingEntries, TrackingEntry{ID: uuid.New(), CreatedAt: now})
		latest = o.LatestTracking()
	} else {
		previous = latest.TrackingNumber
	}
	latest.TrackingNumber = info.Number
	if info.Carrier != "" {
		latest.CarrierName = info.Carrier
	}
	if info.URL != "" {
		latest.TrackingURL = info.URL
	}
	latest.NotifiedCustomer = notifyCustomer
	latest.UpdatedAt = now

	o.record(ActionTrackingUpdate, previous, latest.TrackingNumber, latest.CarrierName, by)
	o.AddDomainEvent(newTrackingUpdatedEvent(o, *latest, notifyCustomer))
	return nil
}

// MoveLocation reassigns the fulfillment location while no fulfiller owns the request
func (o *FulfillmentOrder) MoveLocation(locationID, by string) error {
	if err := o.ensureActive("move"); err != nil {
		return err
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return NewValidationError(o.ID, "destination location is required")
	}
	if locationID == o.LocationID {
		return NewValidationError(o.ID, "order %s is already assigned to location %s", o.OrderNumber, locationID)
	}
	if o.RequestStatus.IsWithFulfiller() {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"cannot move order %s while its request is %s", o.OrderNumber, o.RequestStatus).WithOrder(o.ID)
	}

	previous := o.LocationID
	o.LocationID = locationID
	entry := o.record(ActionLocationChange, previous, locationID, "", by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeLocationChanged, o, entry))
	return nil
}

// =============================================================================
// 3PL request handshake
// =============================================================================

func (o *FulfillmentOrder) changeRequest(target RequestStatus) (RequestStatus, error) {
	if !o.RequestStatus.CanTransitionTo(target) {
		return "", NewInvalidTransitionError(o.ID, o.RequestStatus, target)
	}
	previous := o.RequestStatus
	o.RequestStatus = target
	return previous, nil
}

// SubmitRequest asks the fulfiller to fulfill the order. Re-submission after a
// rejection is allowed; submitting an already SUBMITTED request is not.
func (o *FulfillmentOrder) SubmitRequest(message string, notifyMerchant bool, by string) error {
	if err := o.ensureActive("submit"); err != nil {
		return err
	}
	if o.RequestStatus == RequestSubmitted {
		return NewValidationError(o.ID, "request for order %s is already submitted", o.OrderNumber)
	}
	previous, err := o.changeRequest(RequestSubmitted)
	if err != nil {
		return err
	}
	o.RequestReason = ""
	message = strings.TrimSpace(message)
	o.record(ActionRequestSubmitted, previous.String(), o.RequestStatus.String(), message, by)
	o.AddDomainEvent(newRequestSubmittedEvent(o, message, notifyMerchant))
	return nil
}

// AcceptRequest is the fulfiller accepting a submitted request
func (o *FulfillmentOrder) AcceptRequest(by string) error {
	if err := o.ensureNotTerminal("accept request for"); err != nil {
		return err
	}
	previous, err := o.changeRequest(RequestAccepted)
	if err != nil {
		return err
	}
	entry := o.record(ActionRequestAccepted, previous.String(), o.RequestStatus.String(), "", by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeRequestAccepted, o, entry))
	return nil
}

// RejectRequest is the fulfiller rejecting a submitted request; reason is required
func (o *FulfillmentOrder) RejectRequest(reason, by string) error {
	if err := o.ensureNotTerminal("reject request for"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError(o.ID, "rejection reason is required")
	}
	previous, err := o.changeRequest(RequestRejected)
	if err != nil {
		return err
	}
	o.RequestReason = reason
	entry := o.record(ActionRequestRejected, previous.String(), o.RequestStatus.String(), reason, by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeRequestRejected, o, entry))
	return nil
}

// RequestCancellation is the merchant asking the fulfiller to cancel an accepted request
func (o *FulfillmentOrder) RequestCancellation(message, by string) error {
	if err := o.ensureNotTerminal("request cancellation of"); err != nil {
		return err
	}
	previous, err := o.changeRequest(RequestCancellationRequested)
	if err != nil {
		return err
	}
	entry := o.record(ActionCancellation, previous.String(), o.RequestStatus.String(), strings.TrimSpace(message), by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeCancellationRequested, o, entry))
	return nil
}

// AcceptCancellation is the fulfiller agreeing to cancel; the order becomes CANCELLED
func (o *FulfillmentOrder) AcceptCancellation(message, by string) error {
	if err := o.ensureNotTerminal("accept cancellation of"); err != nil {
		return err
	}
	if _, err := o.changeRequest(RequestCancellationAccepted); err != nil {
		return err
	}
	previous := o.cancel()
	entry := o.record(ActionCancellation, previous.String(), o.Status.String(), strings.TrimSpace(message), by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeCancellationAccepted, o, entry))
	return nil
}

// RejectCancellation is the fulfiller refusing to cancel; reason is required
func (o *FulfillmentOrder) RejectCancellation(reason, by string) error {
	if err := o.ensureNotTerminal("reject cancellation of"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError(o.ID, "cancellation rejection reason is required")
	}
	previous, err := o.changeRequest(RequestCancellationRejected)
	if err != nil {
		return err
	}
	o.RequestReason = reason
	entry := o.record(ActionCancellation, previous.String(), o.RequestStatus.String(), reason, by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeCancellationRejected, o, entry))
	return nil
}

// Cancel cancels an order that no fulfiller owns (request UNSUBMITTED or REJECTED).
// Orders with a live request go through RequestCancellation instead.
func (o *FulfillmentOrder) Cancel(reason, by string) error {
	if err := o.ensureNotTerminal("cancel"); err != nil {
		return err
	}
	if o.RequestStatus != RequestUnsubmitted && o.RequestStatus != RequestRejected {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"order %s request is %s; cancellation must be requested from the fulfiller", o.OrderNumber, o.RequestStatus).WithOrder(o.ID)
	}
	previous := o.cancel()
	entry := o.record(ActionCancellation, previous.String(), o.Status.String(), strings.TrimSpace(reason), by)
	o.AddDomainEvent(newTransitionedEvent(EventTypeOrderCancelled, o, entry))
	return nil
}

func (o *FulfillmentOrder) cancel() OrderStatus {
	previous := o.Status
	now := time.Now()
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.HoldReason = nil
	o.HoldNotes = ""
	o.HoldPreviousStatus = nil
	return previous
}
