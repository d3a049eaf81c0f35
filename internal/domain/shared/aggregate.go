package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot carries identity, timestamps, the optimistic-lock version
// and the domain events raised since the aggregate was last saved.
type BaseAggregateRoot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	pending []DomainEvent
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

func (a *BaseAggregateRoot) Touch() {
	a.UpdatedAt = time.Now()
}

// AddDomainEvent queues event for publication after the next successful save.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns a copy of the queued events in the order they were raised.
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.pending))
	copy(out, a.pending)
	return out
}

// PullEvents returns the queued events and empties the queue.
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	out := a.pending
	a.pending = nil
	return out
}

// DiscardEvents drops the queued events without publishing them.
func (a *BaseAggregateRoot) DiscardEvents() {
	a.pending = nil
}
