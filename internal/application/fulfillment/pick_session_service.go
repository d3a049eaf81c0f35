package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PickSessionService drives the pick -> pack -> ship wizard. Sessions live in
// the store addressed by handle; only the SHIP confirmation reaches the order.
type PickSessionService struct {
	orderRepo fulfillment.OrderRepository
	sessions  PickSessionStore
	creator   fulfillment.FulfillmentCreator
	shipping  *ShippingMethodService
	logger    *zap.Logger
}

// NewPickSessionService creates a new PickSessionService
func NewPickSessionService(
	orderRepo fulfillment.OrderRepository,
	sessions PickSessionStore,
	creator fulfillment.FulfillmentCreator,
	shipping *ShippingMethodService,
	logger *zap.Logger,
) *PickSessionService {
	return &PickSessionService{
		orderRepo: orderRepo,
		sessions:  sessions,
		creator:   creator,
		shipping:  shipping,
		logger:    logger,
	}
}

// Start opens a session over the order's unfulfilled quantities
func (s *PickSessionService) Start(ctx context.Context, orderID uuid.UUID, operator string) (*PickSessionResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var methods *fulfillment.ShippingMethodMapping
	if s.shipping != nil && order.LocationID != "" {
		if methods, err = s.shipping.MappingFor(ctx, order.LocationID); err != nil {
			return nil, err
		}
	}

	session, err := fulfillment.NewPickSession(order, operator, methods)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("pick session started",
		zap.String("session_id", session.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(session.Lines)),
	)
	resp := ToPickSessionResponse(session)
	return &resp, nil
}

// update applies fn to the session and returns its state. The state is
// returned alongside fn's error so callers can surface LastError.
func (s *PickSessionService) update(ctx context.Context, sessionID uuid.UUID, fn func(*fulfillment.PickSession) error) (*PickSessionResponse, error) {
	var resp PickSessionResponse
	var fnErr error
	err := s.sessions.Update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		fnErr = fn(session)
		resp = ToPickSessionResponse(session)
		return fnErr
	})
	if err != nil && fnErr == nil {
		// the store itself failed, typically an unknown or expired handle
		return nil, err
	}
	return &resp, err
}

// Get returns the session state
func (s *PickSessionService) Get(ctx context.Context, sessionID uuid.UUID) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(*fulfillment.PickSession) error { return nil })
}

// Scan picks one unit of the scanned SKU
func (s *PickSessionService) Scan(ctx context.Context, sessionID uuid.UUID, req ScanRequest) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		_, err := session.Scan(req.SKU)
		return err
	})
}

// Increment picks one more unit of a line
func (s *PickSessionService) Increment(ctx context.Context, sessionID uuid.UUID, req AdjustLineRequest) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		_, err := session.Increment(req.LineItemID)
		return err
	})
}

// Decrement un-picks one unit of a line
func (s *PickSessionService) Decrement(ctx context.Context, sessionID uuid.UUID, req AdjustLineRequest) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		_, err := session.Decrement(req.LineItemID)
		return err
	})
}

// Next advances the wizard one phase
func (s *PickSessionService) Next(ctx context.Context, sessionID uuid.UUID) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		return session.Next()
	})
}

// Back moves the wizard one phase back
func (s *PickSessionService) Back(ctx context.Context, sessionID uuid.UUID) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		return session.Back()
	})
}

// DismissError clears the session's transient error
func (s *PickSessionService) DismissError(ctx context.Context, sessionID uuid.UUID) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		session.DismissError()
		return nil
	})
}

// Pack updates the packing checklist and notes
func (s *PickSessionService) Pack(ctx context.Context, sessionID uuid.UUID, req PackRequest) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		for _, c := range req.Checks {
			if err := session.SetPackCheck(c.Index, c.Done); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			return session.SetPackNotes(*req.Notes)
		}
		return nil
	})
}

// SetShipping records the SHIP step's carrier, tracking and method
func (s *PickSessionService) SetShipping(ctx context.Context, sessionID uuid.UUID, req ShippingRequest) (*PickSessionResponse, error) {
	return s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		return session.SetShipping(fulfillment.ShippingSelection{
			Carrier:           req.Carrier,
			TrackingNumber:    req.TrackingNumber,
			TrackingURL:       req.TrackingURL,
			WarehouseMethodID: req.WarehouseMethodID,
			NotifyCustomer:    req.NotifyCustomer,
		})
	})
}

// Confirm issues createFulfillment for the picked quantities. On failure the
// session stays on SHIP with the error recorded.
func (s *PickSessionService) Confirm(ctx context.Context, sessionID uuid.UUID) (*PickSessionResponse, error) {
	resp, err := s.update(ctx, sessionID, func(session *fulfillment.PickSession) error {
		_, err := session.Confirm(ctx, s.creator)
		return err
	})
	if err == nil {
		logger.WithLogger(ctx, s.logger).Info("pick session confirmed",
			zap.String("session_id", sessionID.String()),
			zap.String("order_id", resp.OrderID.String()),
			zap.Stringer("fulfillment_id", resp.FulfillmentID),
		)
	}
	return resp, err
}

// Discard abandons the session without touching the order
func (s *PickSessionService) Discard(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	logger.WithLogger(ctx, s.logger).Info("pick session discarded", zap.String("session_id", sessionID.String()))
	return nil
}
