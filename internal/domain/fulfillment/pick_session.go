package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PickPhase is a step of the pick -> pack -> ship wizard
type PickPhase string

const (
	PhasePick     PickPhase = "PICK"
	PhasePack     PickPhase = "PACK"
	PhaseShip     PickPhase = "SHIP"
	PhaseComplete PickPhase = "COMPLETE"
)

// String returns the string representation of PickPhase
func (p PickPhase) String() string {
	return string(p)
}

func (p PickPhase) next() PickPhase {
	switch p {
	case PhasePick:
		return PhasePack
	case PhasePack:
		return PhaseShip
	case PhaseShip:
		return PhaseComplete
	}
	return p
}

func (p PickPhase) previous() PickPhase {
	switch p {
	case PhasePack:
		return PhasePick
	case PhaseShip:
		return PhasePack
	}
	return p
}

// PickLine is the session's working copy of a line item.
// PickedQuantity stays within [0, OrderedQuantity].
type PickLine struct {
	LineItemID      uuid.UUID
	SKU             string
	ProductName     string
	OrderedQuantity int
	PickedQuantity  int

	foldedSKU string
}

// Verified reports whether every ordered unit has been picked
func (l PickLine) Verified() bool {
	return l.PickedQuantity == l.OrderedQuantity
}

func (l *PickLine) increment() bool {
	if l.PickedQuantity >= l.OrderedQuantity {
		return false
	}
	l.PickedQuantity++
	return true
}

func (l *PickLine) decrement() bool {
	if l.PickedQuantity <= 0 {
		return false
	}
	l.PickedQuantity--
	return true
}

// PackCheck is one advisory packing checklist item
type PackCheck struct {
	Label string
	Done  bool
}

// DefaultPackChecklist is the checklist every session starts with
func DefaultPackChecklist() []PackCheck {
	return []PackCheck{
		{Label: "Items match packing slip"},
		{Label: "Fragile items protected"},
		{Label: "Packing slip included"},
		{Label: "Package sealed"},
	}
}

// ShippingSelection is what the operator chose on the SHIP step
type ShippingSelection struct {
	Carrier           string
	TrackingNumber    string
	TrackingURL       string
	WarehouseMethodID string
	ChannelMethodName string
	NotifyCustomer    bool
}

// PickSession is the ephemeral state of one pick-pack-ship wizard for one order.
// Nothing in it is durable until Confirm succeeds.
type PickSession struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	OrderNumber     string
	Operator        string
	Phase           PickPhase
	Lines           []PickLine
	PackChecklist   []PackCheck
	PackNotes       string
	ShippingAddress valueobject.Address
	Shipping        ShippingSelection
	LastError       string
	FulfillmentID   *uuid.UUID
	StartedAt       time.Time
	LastActivityAt  time.Time

	methods *ShippingMethodMapping
}

// NewPickSession opens a wizard over the order's unfulfilled quantities.
// methods may be nil when the location has no shipping method mapping.
func NewPickSession(order *FulfillmentOrder, operator string, methods *ShippingMethodMapping) (*PickSession, error) {
	if order.IsOnHold() {
		return nil, NewHeldOrderError(order.ID, order.holdReason(), "pick")
	}
	if err := order.ensureNotTerminal("pick"); err != nil {
		return nil, err
	}

	lines := make([]PickLine, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		remaining := item.RemainingQuantity()
		if remaining <= 0 {
			continue
		}
		lines = append(lines, PickLine{
			LineItemID:      item.ID,
			SKU:             item.SKU,
			ProductName:     item.ProductName,
			OrderedQuantity: remaining,
			foldedSKU:       FoldSKU(item.SKU),
		})
	}
	if len(lines) == 0 {
		return nil, NewValidationError(order.ID, "order %s has nothing left to pick", order.OrderNumber)
	}

	now := time.Now()
	return &PickSession{
		ID:              uuid.New(),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Operator:        operator,
		Phase:           PhasePick,
		Lines:           lines,
		PackChecklist:   DefaultPackChecklist(),
		ShippingAddress: order.ShippingAddress,
		StartedAt:       now,
		LastActivityAt:  now,
		methods:         methods,
	}, nil
}

func (s *PickSession) requirePhase(phase PickPhase, action string) error {
	if s.Phase != phase {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"cannot %s during %s phase", action, s.Phase).WithOrder(s.OrderID)
	}
	return nil
}

func (s *PickSession) fail(err *shared.DomainError) error {
	s.LastError = err.Message
	return err
}

func (s *PickSession) touch() {
	s.LastActivityAt = time.Now()
}

func (s *PickSession) line(id uuid.UUID) *PickLine {
	for i := range s.Lines {
		if s.Lines[i].LineItemID == id {
			return &s.Lines[i]
		}
	}
	return nil
}

// AllItemsPicked reports whether every line is verified
func (s *PickSession) AllItemsPicked() bool {
	for _, l := range s.Lines {
		if !l.Verified() {
			return false
		}
	}
	return true
}

// PickedLines returns the fulfillment lines for every picked unit
func (s *PickSession) PickedLines() []FulfillmentLine {
	out := make([]FulfillmentLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		if l.PickedQuantity > 0 {
			out = append(out, FulfillmentLine{LineItemID: l.LineItemID, Quantity: l.PickedQuantity})
		}
	}
	return out
}

// DismissError clears the transient error
func (s *PickSession) DismissError() {
	s.LastError = ""
}

// =============================================================================
// PICK
// =============================================================================

// Scan matches a scanned SKU case-insensitively and picks one unit of it.
// A SKU that matches no line is reported and changes nothing; scanning a line
// that is already complete is a no-op.
func (s *PickSession) Scan(sku string) (*PickLine, error) {
	if err := s.requirePhase(PhasePick, "scan"); err != nil {
		return nil, err
	}
	s.touch()

	key := FoldSKU(sku)
	var match *PickLine
	for i := range s.Lines {
		if s.Lines[i].foldedSKU != key {
			continue
		}
		if match == nil {
			match = &s.Lines[i]
		}
		if !s.Lines[i].Verified() {
			match = &s.Lines[i]
			break
		}
	}
	if key == "" || match == nil {
		return nil, s.fail(NewValidationError(s.OrderID, "SKU %q is not on order %s", strings.TrimSpace(sku), s.OrderNumber))
	}

	s.LastError = ""
	match.increment()
	return match, nil
}

// Increment picks one more unit of a line, up to its ordered quantity
func (s *PickSession) Increment(lineItemID uuid.UUID) (*PickLine, error) {
	return s.adjust(lineItemID, (*PickLine).increment)
}

// Decrement un-picks one unit of a line, down to zero
func (s *PickSession) Decrement(lineItemID uuid.UUID) (*PickLine, error) {
	return s.adjust(lineItemID, (*PickLine).decrement)
}

func (s *PickSession) adjust(lineItemID uuid.UUID, op func(*PickLine) bool) (*PickLine, error) {
	if err := s.requirePhase(PhasePick, "adjust quantities"); err != nil {
		return nil, err
	}
	s.touch()
	l := s.line(lineItemID)
	if l == nil {
		return nil, s.fail(NewValidationError(s.OrderID, "line item %s is not in this session", lineItemID))
	}
	op(l)
	return l, nil
}

// =============================================================================
// PACK
// =============================================================================

// SetPackCheck ticks or clears a checklist item by index
func (s *PickSession) SetPackCheck(index int, done bool) error {
	if err := s.requirePhase(PhasePack, "update the packing checklist"); err != nil {
		return err
	}
	s.touch()
	if index < 0 || index >= len(s.PackChecklist) {
		return s.fail(NewValidationError(s.OrderID, "packing checklist has no item %d", index))
	}
	s.PackChecklist[index].Done = done
	return nil
}

// SetPackNotes stores free-text packing notes
func (s *PickSession) SetPackNotes(notes string) error {
	if err := s.requirePhase(PhasePack, "edit packing notes"); err != nil {
		return err
	}
	s.touch()
	s.PackNotes = strings.TrimSpace(notes)
	return nil
}

// =============================================================================
// SHIP
// =============================================================================

// SetShipping records the carrier and optional tracking for the shipment.
// A warehouse method id, when given, must resolve through the location's mapping.
func (s *PickSession) SetShipping(sel ShippingSelection) error {
	if err := s.requirePhase(PhaseShip, "choose shipping"); err != nil {
		return err
	}
	s.touch()

	sel.Carrier = strings.TrimSpace(sel.Carrier)
	sel.TrackingNumber = strings.TrimSpace(sel.TrackingNumber)
	sel.TrackingURL = strings.TrimSpace(sel.TrackingURL)
	sel.WarehouseMethodID = strings.TrimSpace(sel.WarehouseMethodID)
	sel.ChannelMethodName = ""

	if sel.Carrier == "" {
		return s.fail(NewValidationError(s.OrderID, "carrier is required"))
	}
	if sel.WarehouseMethodID != "" {
		if s.methods == nil {
			return s.fail(NewValidationError(s.OrderID, "no shipping method mapping for this location"))
		}
		name, err := s.methods.Resolve(sel.WarehouseMethodID)
		if err != nil {
			s.LastError = err.Error()
			return err
		}
		sel.ChannelMethodName = name
	}

	s.Shipping = sel
	s.LastError = ""
	return nil
}

// FulfillmentRequest builds the createFulfillment command for the SHIP step
func (s *PickSession) FulfillmentRequest() (FulfillmentRequest, error) {
	if err := s.requirePhase(PhaseShip, "ship"); err != nil {
		return FulfillmentRequest{}, err
	}
	if s.ShippingAddress.IsEmpty() {
		return FulfillmentRequest{}, s.fail(NewValidationError(s.OrderID, "order %s has no shipping address", s.OrderNumber))
	}
	if s.Shipping.Carrier == "" {
		return FulfillmentRequest{}, s.fail(NewValidationError(s.OrderID, "carrier is required"))
	}

	req := FulfillmentRequest{
		OrderID:        s.OrderID,
		Lines:          s.PickedLines(),
		Carrier:        s.Shipping.Carrier,
		ShippingMethod: s.Shipping.ChannelMethodName,
		NotifyCustomer: s.Shipping.NotifyCustomer,
		PerformedBy:    s.Operator,
	}
	if s.Shipping.TrackingNumber != "" {
		req.Tracking = &TrackingInfo{
			Number:  s.Shipping.TrackingNumber,
			Carrier: s.Shipping.Carrier,
			URL:     s.Shipping.TrackingURL,
		}
	}
	return req, nil
}

// Confirm issues createFulfillment. On failure the session stays on SHIP with
// the error recorded and all picked quantities intact.
func (s *PickSession) Confirm(ctx context.Context, creator FulfillmentCreator) (*Fulfillment, error) {
	req, err := s.FulfillmentRequest()
	if err != nil {
		return nil, err
	}
	s.touch()

	f, err := creator.CreateFulfillment(ctx, req)
	if err != nil {
		s.LastError = err.Error()
		return nil, err
	}

	s.LastError = ""
	s.FulfillmentID = &f.ID
	s.Phase = PhaseComplete
	return f, nil
}

// =============================================================================
// Navigation
// =============================================================================

// Next advances one phase. Leaving PICK requires every line verified; SHIP is
// left only through Confirm.
func (s *PickSession) Next() error {
	s.touch()
	switch s.Phase {
	case PhasePick:
		if !s.AllItemsPicked() {
			return s.fail(NewValidationError(s.OrderID, "all items must be picked before packing"))
		}
	case PhasePack:
	case PhaseShip:
		return s.fail(shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"confirm the shipment to complete the session").WithOrder(s.OrderID))
	default:
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"session for order %s is complete", s.OrderNumber).WithOrder(s.OrderID)
	}
	s.Phase = s.Phase.next()
	s.LastError = ""
	return nil
}

// Back moves one phase backward keeping entered data
func (s *PickSession) Back() error {
	s.touch()
	if s.Phase == PhasePick || s.Phase == PhaseComplete {
		return shared.NewDomainErrorf(shared.CodeInvalidTransition,
			"cannot go back from %s phase", s.Phase).WithOrder(s.OrderID)
	}
	s.Phase = s.Phase.previous()
	s.LastError = ""
	return nil
}
