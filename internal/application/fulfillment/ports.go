package fulfillment

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
)

// OrderLocker serializes commands per order id across every entry point.
// Lock blocks until the lock is held or ctx is done; a lock that cannot be
// acquired yields a LOCK_UNAVAILABLE DomainError.
type OrderLocker interface {
	Lock(ctx context.Context, orderID uuid.UUID) (func(), error)
}

// PickSessionStore keeps pick sessions addressed by handle. Sessions are never
// persisted beyond the process and expire after an idle period.
type PickSessionStore interface {
	Put(ctx context.Context, session *fulfillment.PickSession) error

	// Update runs fn with exclusive access to the session. Mutations made by fn
	// are kept even when fn returns an error. Unknown or expired handles yield
	// a NOT_FOUND DomainError.
	Update(ctx context.Context, id uuid.UUID, fn func(*fulfillment.PickSession) error) error

	Delete(ctx context.Context, id uuid.UUID) error
}

// Audience is who a notification is addressed to
type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceMerchant Audience = "merchant"
)

// Notification is a best-effort message sent after a committed transition
type Notification struct {
	Audience    Audience          `json:"audience"`
	EventType   string            `json:"event_type"`
	EventID     uuid.UUID         `json:"event_id"`
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Message     string            `json:"message,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier delivers notifications. Failures are reported to the caller but
// never undo the transition that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
