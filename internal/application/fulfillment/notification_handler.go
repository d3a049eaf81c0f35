package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// NotificationHandler turns committed order events into customer and merchant
// notifications. Delivery is best-effort: failures are logged and swallowed.
type NotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier Notifier, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		fulfillment.EventTypeFulfillmentCreated,
		fulfillment.EventTypeTrackingUpdated,
		fulfillment.EventTypeRequestSubmitted,
		fulfillment.EventTypeRequestAccepted,
		fulfillment.EventTypeRequestRejected,
	}
}

// Handle sends the notification an event calls for, if any
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, ok := notificationFor(event)
	if !ok {
		return nil
	}

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Warn("notification delivery failed",
			zap.String("event_type", n.EventType),
			zap.String("audience", string(n.Audience)),
			zap.String("order_id", n.OrderID.String()),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Debug("notification sent",
		zap.String("event_type", n.EventType),
		zap.String("audience", string(n.Audience)),
		zap.String("order_id", n.OrderID.String()),
	)
	return nil
}

// notificationFor maps an event to its notification. Events whose notify flag
// is off produce none.
func notificationFor(event shared.DomainEvent) (Notification, bool) {
	n := Notification{
		EventType:  event.EventType(),
		EventID:    event.EventID(),
		OrderID:    event.AggregateID(),
		OccurredAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case *fulfillment.FulfillmentCreatedEvent:
		if !e.NotifyCustomer {
			return n, false
		}
		n.Audience = AudienceCustomer
		n.OrderNumber = e.OrderNumber
		n.Message = "Your order has shipped"
		n.Data = map[string]string{
			"fulfillment_id":  e.FulfillmentID.String(),
			"carrier":         e.Carrier,
			"tracking_number": e.TrackingNumber,
			"tracking_url":    e.TrackingURL,
		}
	case *fulfillment.TrackingUpdatedEvent:
		if !e.NotifyCustomer {
			return n, false
		}
		n.Audience = AudienceCustomer
		n.OrderNumber = e.OrderNumber
		n.Message = "Your shipment tracking was updated"
		n.Data = map[string]string{
			"carrier":         e.Carrier,
			"tracking_number": e.TrackingNumber,
			"tracking_url":    e.TrackingURL,
		}
	case *fulfillment.RequestSubmittedEvent:
		if !e.NotifyMerchant {
			return n, false
		}
		n.Audience = AudienceMerchant
		n.OrderNumber = e.OrderNumber
		n.Message = e.Message
		n.Data = map[string]string{"location_id": e.LocationID}
	case *fulfillment.OrderTransitionedEvent:
		if e.Type != fulfillment.EventTypeRequestAccepted && e.Type != fulfillment.EventTypeRequestRejected {
			return n, false
		}
		n.Audience = AudienceMerchant
		n.OrderNumber = e.OrderNumber
		n.Message = e.Notes
		n.Data = map[string]string{
			"previous_value": e.PreviousValue,
			"new_value":      e.NewValue,
			"performed_by":   e.PerformedBy,
		}
	default:
		return n, false
	}
	return n, true
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
