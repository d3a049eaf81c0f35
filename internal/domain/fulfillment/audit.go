package fulfillment

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies an audit entry
type ActionType string

const (
	ActionStatusChange       ActionType = "STATUS_CHANGE"
	ActionHold               ActionType = "HOLD"
	ActionRelease            ActionType = "RELEASE"
	ActionTrackingUpdate     ActionType = "TRACKING_UPDATE"
	ActionFulfillmentCreated ActionType = "FULFILLMENT_CREATED"
	ActionRequestSubmitted   ActionType = "REQUEST_SUBMITTED"
	ActionRequestAccepted    ActionType = "REQUEST_ACCEPTED"
	ActionRequestRejected    ActionType = "REQUEST_REJECTED"
	ActionCancellation       ActionType = "CANCELLATION"
	ActionLocationChange     ActionType = "LOCATION_CHANGE"
)

// IsValid checks if the action type belongs to the taxonomy
func (a ActionType) IsValid() bool {
	switch a {
	case ActionStatusChange, ActionHold, ActionRelease, ActionTrackingUpdate, ActionFulfillmentCreated,
		ActionRequestSubmitted, ActionRequestAccepted, ActionRequestRejected, ActionCancellation, ActionLocationChange:
		return true
	}
	return false
}

// String returns the string representation of ActionType
func (a ActionType) String() string {
	return string(a)
}

// AuditEntry is an immutable record of one accepted state change.
// Sequence is assigned by the store on append and breaks PerformedAt ties.
type AuditEntry struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ActionType    ActionType
	PreviousValue string
	NewValue      string
	Notes         string
	PerformedBy   string
	PerformedAt   time.Time
	Sequence      int64
}

func newAuditEntry(orderID uuid.UUID, action ActionType, previous, next, notes, by string) AuditEntry {
	return AuditEntry{
		ID:            uuid.New(),
		OrderID:       orderID,
		ActionType:    action,
		PreviousValue: previous,
		NewValue:      next,
		Notes:         notes,
		PerformedBy:   by,
		PerformedAt:   time.Now(),
	}
}
