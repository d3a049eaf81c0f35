package fulfillment

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Command names used for spans, metrics and logs
const (
	ActionMarkInProgress      = "mark_in_progress"
	ActionSchedule            = "schedule"
	ActionClose               = "close"
	ActionHold                = "hold"
	ActionRelease             = "release"
	ActionFulfill             = "fulfill"
	ActionUpdateTracking      = "update_tracking"
	ActionMoveLocation        = "move_location"
	ActionSubmitRequest       = "submit_request"
	ActionAcceptRequest       = "accept_request"
	ActionRejectRequest       = "reject_request"
	ActionRequestCancellation = "request_cancellation"
	ActionAcceptCancellation  = "accept_cancellation"
	ActionRejectCancellation  = "reject_cancellation"
	ActionCancel              = "cancel"
)

// CodeInternal labels failures that carry no domain error code
const CodeInternal = "INTERNAL_ERROR"

const spanService = "fulfillment_order"

// OrderService runs every single-order command: it takes the order's lock,
// loads the authoritative state, applies one domain transition, saves it with
// its audit entries in one transaction and publishes the resulting events.
type OrderService struct {
	orderRepo       fulfillment.OrderRepository
	auditRepo       fulfillment.AuditRepository
	fulfillmentRepo fulfillment.FulfillmentRepository
	locker          OrderLocker
	eventPublisher  shared.EventPublisher
	metrics         *telemetry.FulfillmentMetrics
	logger          *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo fulfillment.OrderRepository,
	auditRepo fulfillment.AuditRepository,
	fulfillmentRepo fulfillment.FulfillmentRepository,
	locker OrderLocker,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:       orderRepo,
		auditRepo:       auditRepo,
		fulfillmentRepo: fulfillmentRepo,
		locker:          locker,
		logger:          logger,
	}
}

// SetEventPublisher sets the publisher that receives events after each commit
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics attaches transition metrics
func (s *OrderService) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	s.metrics = metrics
}

// errorCode returns the domain code of err, or CodeInternal
func errorCode(err error) string {
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return CodeInternal
}

// execute runs one command against one order under its lock
func (s *OrderService) execute(ctx context.Context, action string, orderID uuid.UUID, fn func(*fulfillment.FulfillmentOrder) error) (*fulfillment.FulfillmentOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, action, telemetry.AttrOrderID.String(orderID.String()))
	defer span.End()
	ctx, _ = logger.WithOrderID(ctx, s.logger, orderID.String())
	log := logger.WithLogger(ctx, s.logger).With(zap.String("action", action))

	order, err := s.run(ctx, orderID, fn)
	if err != nil {
		telemetry.RecordError(span, err)
		code := errorCode(err)
		s.metrics.RecordTransition(ctx, action, code)
		if code == CodeInternal {
			log.Error("fulfillment order command failed", zap.Error(err))
		} else {
			log.Debug("fulfillment order command rejected", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordTransition(ctx, action, "")
	log.Info("fulfillment order command accepted",
		zap.String("status", order.Status.String()),
		zap.String("request_status", order.RequestStatus.String()),
		zap.Int("version", order.Version),
	)
	return order, nil
}

func (s *OrderService) run(ctx context.Context, orderID uuid.UUID, fn func(*fulfillment.FulfillmentOrder) error) (*fulfillment.FulfillmentOrder, error) {
	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(order); err != nil {
		return nil, err
	}

	// Save with optimistic locking; audit entries and fulfillments commit with it
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}
	order.ClearPending()

	s.publishEvents(ctx, order)
	return order, nil
}

// publishEvents hands committed events to the publisher. Failures are logged
// and never fail the command.
func (s *OrderService) publishEvents(ctx context.Context, order *fulfillment.FulfillmentOrder) {
	events := order.PullEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish fulfillment order events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func (s *OrderService) respond(order *fulfillment.FulfillmentOrder, err error) (*OrderResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ==================== Queries ====================

// GetOrder returns the authoritative state of one order
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.respond(s.orderRepo.FindByID(ctx, orderID))
}

// ListOrders lists orders with filtering and pagination
func (s *OrderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter := fulfillment.OrderFilter{
		Filter:        shared.DefaultFilter(),
		Status:        fulfillment.OrderStatus(strings.ToUpper(filter.Status)),
		RequestStatus: fulfillment.RequestStatus(strings.ToUpper(filter.RequestStatus)),
		LocationID:    filter.LocationID,
	}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if domainFilter.Status != "" && !domainFilter.Status.IsValid() {
		return nil, 0, fulfillment.NewValidationError(uuid.Nil, "unknown order status %q", filter.Status)
	}
	if domainFilter.RequestStatus != "" && !domainFilter.RequestStatus.IsValid() {
		return nil, 0, fulfillment.NewValidationError(uuid.Nil, "unknown request status %q", filter.RequestStatus)
	}

	orders, total, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// GetTimeline returns an order's audit entries oldest first
func (s *OrderService) GetTimeline(ctx context.Context, orderID uuid.UUID) ([]AuditEntryResponse, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	entries, err := s.auditRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(entries), nil
}

// ListFulfillments returns the fulfillments recorded for an order
func (s *OrderService) ListFulfillments(ctx context.Context, orderID uuid.UUID) ([]FulfillmentResponse, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	records, err := s.fulfillmentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]FulfillmentResponse, len(records))
	for i := range records {
		out[i] = ToFulfillmentResponse(&records[i])
	}
	return out, nil
}

// ==================== Ingestion ====================

// CreateOrder ingests a channel order as OPEN and UNSUBMITTED
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	address, err := req.ShippingAddress.ToAddress()
	if err != nil {
		return nil, fulfillment.NewValidationError(uuid.Nil, "invalid shipping address: %v", err)
	}

	lines := make([]fulfillment.NewLineItem, len(req.LineItems))
	for i, l := range req.LineItems {
		lines[i] = fulfillment.NewLineItem{SKU: l.SKU, ProductName: l.ProductName, Quantity: l.Quantity}
	}
	order, err := fulfillment.NewFulfillmentOrder(req.OrderNumber, req.LocationID, address, lines)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	logger.WithLogger(ctx, s.logger).Info("fulfillment order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("line_items", len(order.LineItems)),
	)
	return s.respond(order, nil)
}

// ==================== Status progression ====================

// MarkInProgress moves an order to IN_PROGRESS
func (s *OrderService) MarkInProgress(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionMarkInProgress, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.MarkInProgress(actor)
	}))
}

// Schedule moves an order to SCHEDULED
func (s *OrderService) Schedule(ctx context.Context, orderID uuid.UUID, req ScheduleOrderRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionSchedule, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.Schedule(req.FulfillAt, actor)
	}))
}

// Close marks an order CLOSED
func (s *OrderService) Close(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionClose, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.Close(actor)
	}))
}

// ==================== Hold / release ====================

// Hold places an order on hold
func (s *OrderService) Hold(ctx context.Context, orderID uuid.UUID, req HoldOrderRequest, actor string) (*OrderResponse, error) {
	reason := fulfillment.HoldReason(strings.ToUpper(strings.TrimSpace(req.Reason)))
	return s.respond(s.execute(ctx, ActionHold, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.PlaceHold(reason, req.Notes, actor)
	}))
}

// Release releases an order's hold, restoring its prior status
func (s *OrderService) Release(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionRelease, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.ReleaseHold(actor)
	}))
}

// ==================== Fulfillment ====================

// Fulfill records a shipment. Without lines every remaining unit is fulfilled.
func (s *OrderService) Fulfill(ctx context.Context, orderID uuid.UUID, req FulfillOrderRequest, actor string) (*FulfillOrderResponse, error) {
	cmd := fulfillment.FulfillmentRequest{
		OrderID:        orderID,
		Carrier:        req.Carrier,
		ShippingMethod: req.ShippingMethod,
		NotifyCustomer: req.NotifyCustomer,
		PerformedBy:    actor,
	}
	for _, l := range req.Lines {
		cmd.Lines = append(cmd.Lines, fulfillment.FulfillmentLine{LineItemID: l.LineItemID, Quantity: l.Quantity})
	}
	if strings.TrimSpace(req.TrackingNumber) != "" || strings.TrimSpace(req.TrackingURL) != "" {
		cmd.Tracking = &fulfillment.TrackingInfo{Number: req.TrackingNumber, Carrier: req.Carrier, URL: req.TrackingURL}
	}

	order, f, err := s.createFulfillment(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &FulfillOrderResponse{
		Order:       ToOrderResponse(order),
		Fulfillment: ToFulfillmentResponse(f),
	}, nil
}

// CreateFulfillment issues createFulfillment for the pick-pack-ship wizard
func (s *OrderService) CreateFulfillment(ctx context.Context, req fulfillment.FulfillmentRequest) (*fulfillment.Fulfillment, error) {
	_, f, err := s.createFulfillment(ctx, req)
	return f, err
}

func (s *OrderService) createFulfillment(ctx context.Context, req fulfillment.FulfillmentRequest) (*fulfillment.FulfillmentOrder, *fulfillment.Fulfillment, error) {
	var created *fulfillment.Fulfillment
	order, err := s.execute(ctx, ActionFulfill, req.OrderID, func(o *fulfillment.FulfillmentOrder) error {
		if len(req.Lines) == 0 {
			req.Lines = o.RemainingLines()
		}
		f, err := o.CreateFulfillment(req)
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, created, nil
}

// UpdateTracking sets tracking on the latest entry, adding the first one if none exists
func (s *OrderService) UpdateTracking(ctx context.Context, orderID uuid.UUID, req UpdateTrackingRequest, actor string) (*OrderResponse, error) {
	info := fulfillment.TrackingInfo{Number: req.TrackingNumber, Carrier: req.Carrier, URL: req.TrackingURL}
	return s.respond(s.execute(ctx, ActionUpdateTracking, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.UpdateTracking(info, req.NotifyCustomer, actor)
	}))
}

// MoveLocation reassigns the order's fulfillment location
func (s *OrderService) MoveLocation(ctx context.Context, orderID uuid.UUID, req MoveLocationRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionMoveLocation, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.MoveLocation(req.LocationID, actor)
	}))
}

// ==================== 3PL request handshake ====================

// SubmitRequest submits the order to the fulfiller
func (s *OrderService) SubmitRequest(ctx context.Context, orderID uuid.UUID, req SubmitRequestRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionSubmitRequest, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.SubmitRequest(req.Message, req.NotifyMerchant, actor)
	}))
}

// AcceptRequest records the fulfiller accepting the request
func (s *OrderService) AcceptRequest(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionAcceptRequest, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.AcceptRequest(actor)
	}))
}

// RejectRequest records the fulfiller rejecting the request
func (s *OrderService) RejectRequest(ctx context.Context, orderID uuid.UUID, req ReasonRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionRejectRequest, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.RejectRequest(req.Reason, actor)
	}))
}

// RequestCancellation asks the fulfiller to cancel an accepted request
func (s *OrderService) RequestCancellation(ctx context.Context, orderID uuid.UUID, req MessageRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionRequestCancellation, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.RequestCancellation(req.Message, actor)
	}))
}

// AcceptCancellation records the fulfiller accepting cancellation; the order is CANCELLED
func (s *OrderService) AcceptCancellation(ctx context.Context, orderID uuid.UUID, req MessageRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionAcceptCancellation, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.AcceptCancellation(req.Message, actor)
	}))
}

// RejectCancellation records the fulfiller refusing to cancel
func (s *OrderService) RejectCancellation(ctx context.Context, orderID uuid.UUID, req ReasonRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionRejectCancellation, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.RejectCancellation(req.Reason, actor)
	}))
}

// Cancel cancels an order that no fulfiller owns
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, req ReasonRequest, actor string) (*OrderResponse, error) {
	return s.respond(s.execute(ctx, ActionCancel, orderID, func(o *fulfillment.FulfillmentOrder) error {
		return o.Cancel(req.Reason, actor)
	}))
}

var _ fulfillment.FulfillmentCreator = (*OrderService)(nil)
