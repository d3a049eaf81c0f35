package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderServiceFixture struct {
	service      *OrderService
	orderRepo    *MockOrderRepository
	auditRepo    *MockAuditRepository
	fulfillments *MockFulfillmentRepository
	publisher    *MockEventPublisher
	locker       *stubLocker
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		orderRepo:    new(MockOrderRepository),
		auditRepo:    new(MockAuditRepository),
		fulfillments: new(MockFulfillmentRepository),
		publisher:    new(MockEventPublisher),
		locker:       &stubLocker{},
	}
	f.service = NewOrderService(f.orderRepo, f.auditRepo, f.fulfillments, f.locker, zap.NewNop())
	f.service.SetEventPublisher(f.publisher)
	return f
}

// pendingAudit matches a saved order whose single pending audit entry has the given action
func pendingAudit(action fulfillment.ActionType, newValue string) any {
	return mock.MatchedBy(func(o *fulfillment.FulfillmentOrder) bool {
		entries := o.PendingAuditEntries()
		return len(entries) == 1 && entries[0].ActionType == action && entries[0].NewValue == newValue
	})
}

func publishedTypes(types ...string) any {
	return mock.MatchedBy(func(events []shared.DomainEvent) bool {
		if len(events) != len(types) {
			return false
		}
		for i, e := range events {
			if e.EventType() != types[i] {
				return false
			}
		}
		return true
	})
}

// ============================================
// Hold / release
// ============================================

func TestOrderService_Hold_Success(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	ctx := context.Background()

	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, pendingAudit(fulfillment.ActionHold, "AWAITING_PAYMENT")).Return(nil)
	f.publisher.On("Publish", mock.Anything, publishedTypes(fulfillment.EventTypeOrderHeld)).Return(nil)

	resp, err := f.service.Hold(ctx, order.ID, HoldOrderRequest{Reason: "awaiting_payment", Notes: "card declined"}, testActor)

	require.NoError(t, err)
	assert.Equal(t, "ON_HOLD", resp.Status)
	require.NotNil(t, resp.HoldReason)
	assert.Equal(t, "AWAITING_PAYMENT", *resp.HoldReason)
	assert.Equal(t, "card declined", resp.HoldNotes)
	assert.Equal(t, []uuid.UUID{order.ID}, f.locker.locked)
	assert.Empty(t, order.PendingAuditEntries(), "pending entries are cleared after save")
	assert.Empty(t, order.PendingEvents(), "events are cleared after publish")
	f.orderRepo.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestOrderService_Hold_TerminalOrder(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	require.NoError(t, order.Cancel("duplicate", testActor))
	order.ClearPending()
	order.DiscardEvents()

	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	resp, err := f.service.Hold(context.Background(), order.ID, HoldOrderRequest{Reason: "OTHER"}, testActor)

	assert.Nil(t, resp)
	assertCode(t, err, shared.CodeInvalidTransition)
	f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_Release_RestoresPriorStatus(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	require.NoError(t, order.MarkInProgress(testActor))
	require.NoError(t, order.PlaceHold(fulfillment.HoldIncorrectAddress, "", testActor))
	order.ClearPending()
	order.DiscardEvents()

	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, pendingAudit(fulfillment.ActionRelease, "IN_PROGRESS")).Return(nil)
	f.publisher.On("Publish", mock.Anything, publishedTypes(fulfillment.EventTypeOrderReleased)).Return(nil)

	resp, err := f.service.Release(context.Background(), order.ID, testActor)

	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", resp.Status)
	assert.Nil(t, resp.HoldReason)
	assert.Empty(t, resp.HoldNotes)
}

func TestOrderService_Release_NotOnHold(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.service.Release(context.Background(), order.ID, testActor)

	assertCode(t, err, shared.CodeNotOnHold)
	f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

// ============================================
// Command pipeline failures
// ============================================

func TestOrderService_OrderNotFound(t *testing.T) {
	f := newOrderServiceFixture()
	id := uuid.New()
	f.orderRepo.On("FindByID", mock.Anything, id).Return(nil, fulfillment.NewOrderNotFoundError(id))

	_, err := f.service.MarkInProgress(context.Background(), id, testActor)

	assertCode(t, err, shared.CodeNotFound)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestOrderService_LockUnavailable(t *testing.T) {
	f := newOrderServiceFixture()
	f.locker.err = shared.NewDomainError(shared.CodeLockUnavailable, "order is locked")
	id := uuid.New()

	_, err := f.service.Close(context.Background(), id, testActor)

	assertCode(t, err, shared.CodeLockUnavailable)
	f.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestOrderService_ConcurrentModification(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(shared.ErrConcurrentModification)

	_, err := f.service.MarkInProgress(context.Background(), order.ID, testActor)

	assertCode(t, err, shared.CodeConcurrentModification)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_PublishFailureDoesNotFailCommand(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	resp, err := f.service.MarkInProgress(context.Background(), order.ID, testActor)

	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", resp.Status)
}

func TestOrderService_WithoutPublisher(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	service := NewOrderService(orderRepo, new(MockAuditRepository), new(MockFulfillmentRepository), &stubLocker{}, zap.NewNop())
	order := newTestOrder(t)
	orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)

	_, err := service.Schedule(context.Background(), order.ID, ScheduleOrderRequest{FulfillAt: time.Now().Add(24 * time.Hour)}, testActor)

	require.NoError(t, err)
	assert.Empty(t, order.PendingEvents())
}

// ============================================
// Fulfillment
// ============================================

func TestOrderService_Fulfill_AllRemaining(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, mock.MatchedBy(func(o *fulfillment.FulfillmentOrder) bool {
		return len(o.PendingFulfillments()) == 1 && len(o.PendingAuditEntries()) == 1
	})).Return(nil)
	f.publisher.On("Publish", mock.Anything, publishedTypes(fulfillment.EventTypeFulfillmentCreated)).Return(nil)

	resp, err := f.service.Fulfill(context.Background(), order.ID, FulfillOrderRequest{
		Carrier:        "UPS",
		TrackingNumber: "1Z999",
		NotifyCustomer: true,
	}, testActor)

	require.NoError(t, err)
	assert.Equal(t, "CLOSED", resp.Order.Status)
	assert.Equal(t, 3, resp.Fulfillment.Quantity)
	assert.Equal(t, "1Z999", resp.Fulfillment.TrackingNumber)
	assert.Equal(t, testActor, resp.Fulfillment.CreatedBy)
	require.Len(t, resp.Order.TrackingEntries, 1)
	for _, l := range resp.Order.LineItems {
		assert.Zero(t, l.RemainingQuantity)
	}
}

func TestOrderService_Fulfill_Partial(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.Fulfill(context.Background(), order.ID, FulfillOrderRequest{
		Lines: []FulfillLineInput{{LineItemID: order.LineItems[0].ID, Quantity: 1}},
	}, testActor)

	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", resp.Order.Status)
	assert.Equal(t, 1, resp.Order.LineItems[0].RemainingQuantity)
	assert.Empty(t, resp.Order.TrackingEntries)
}

func TestOrderService_Fulfill_HeldOrder(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	require.NoError(t, order.PlaceHold(fulfillment.HoldHighRiskOfFraud, "", testActor))
	order.ClearPending()
	order.DiscardEvents()
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.service.Fulfill(context.Background(), order.ID, FulfillOrderRequest{}, testActor)

	assertCode(t, err, shared.CodeHeldOrder)
	f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestOrderService_CreateFulfillment_ImplementsCreator(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var creator fulfillment.FulfillmentCreator = f.service
	created, err := creator.CreateFulfillment(context.Background(), fulfillment.FulfillmentRequest{
		OrderID:     order.ID,
		Lines:       []fulfillment.FulfillmentLine{{LineItemID: order.LineItems[1].ID, Quantity: 1}},
		Carrier:     "DHL",
		PerformedBy: "picker-7",
	})

	require.NoError(t, err)
	assert.Equal(t, order.ID, created.OrderID)
	assert.Equal(t, "picker-7", created.CreatedBy)
}

func TestOrderService_UpdateTracking(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	_, err := order.CreateFulfillment(fulfillment.FulfillmentRequest{OrderID: order.ID, Lines: order.RemainingLines()})
	require.NoError(t, err)
	order.ClearPending()
	order.DiscardEvents()

	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, pendingAudit(fulfillment.ActionTrackingUpdate, "TRACK-2")).Return(nil)
	f.publisher.On("Publish", mock.Anything, publishedTypes(fulfillment.EventTypeTrackingUpdated)).Return(nil)

	resp, err := f.service.UpdateTracking(context.Background(), order.ID, UpdateTrackingRequest{
		TrackingNumber: "TRACK-2",
		Carrier:        "FedEx",
	}, testActor)

	require.NoError(t, err)
	require.Len(t, resp.TrackingEntries, 1)
	assert.Equal(t, "TRACK-2", resp.TrackingEntries[0].TrackingNumber)
	assert.Equal(t, "FedEx", resp.TrackingEntries[0].CarrierName)
}

// ============================================
// Handshake
// ============================================

func TestOrderService_Handshake(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	ctx := context.Background()
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.service.SubmitRequest(ctx, order.ID, SubmitRequestRequest{Message: "please ship", NotifyMerchant: true}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", resp.RequestStatus)

	_, err = f.service.RejectRequest(ctx, order.ID, ReasonRequest{}, "3pl")
	assertCode(t, err, shared.CodeValidation)

	resp, err = f.service.RejectRequest(ctx, order.ID, ReasonRequest{Reason: "out of stock"}, "3pl")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", resp.RequestStatus)
	assert.Equal(t, "out of stock", resp.RequestReason)

	_, err = f.service.SubmitRequest(ctx, order.ID, SubmitRequestRequest{}, testActor)
	require.NoError(t, err)
	resp, err = f.service.AcceptRequest(ctx, order.ID, "3pl")
	require.NoError(t, err)
	assert.Equal(t, "ACCEPTED", resp.RequestStatus)

	_, err = f.service.Cancel(ctx, order.ID, ReasonRequest{Reason: "customer changed mind"}, testActor)
	assertCode(t, err, shared.CodeInvalidTransition)

	_, err = f.service.RequestCancellation(ctx, order.ID, MessageRequest{Message: "customer changed mind"}, testActor)
	require.NoError(t, err)
	resp, err = f.service.AcceptCancellation(ctx, order.ID, MessageRequest{}, "3pl")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "CANCELLATION_ACCEPTED", resp.RequestStatus)
	assert.NotNil(t, resp.CancelledAt)

	f.orderRepo.AssertNumberOfCalls(t, "SaveWithLock", 6)
}

func TestOrderService_MoveLocation(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orderRepo.On("SaveWithLock", mock.Anything, pendingAudit(fulfillment.ActionLocationChange, "loc-2")).Return(nil)
	f.publisher.On("Publish", mock.Anything, publishedTypes(fulfillment.EventTypeLocationChanged)).Return(nil)

	resp, err := f.service.MoveLocation(context.Background(), order.ID, MoveLocationRequest{LocationID: "loc-2"}, testActor)

	require.NoError(t, err)
	assert.Equal(t, "loc-2", resp.LocationID)
}

// ============================================
// Ingestion and queries
// ============================================

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrderServiceFixture()
	f.orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*fulfillment.FulfillmentOrder")).Return(nil)

	resp, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{
		OrderNumber: "SO-2001",
		LocationID:  "loc-1",
		ShippingAddress: valueobject.AddressDTO{
			Name: "Grace Hopper", Line1: "2 Compiler Rd", City: "Arlington", CountryCode: "us",
		},
		LineItems: []CreateLineItemInput{{SKU: "ABC-1", Quantity: 3}},
	})

	require.NoError(t, err)
	assert.Equal(t, "OPEN", resp.Status)
	assert.Equal(t, "UNSUBMITTED", resp.RequestStatus)
	assert.Equal(t, "US", resp.ShippingAddress.CountryCode)
	require.Len(t, resp.LineItems, 1)
	assert.Equal(t, 3, resp.LineItems[0].RemainingQuantity)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{
			name: "bad address",
			req: CreateOrderRequest{
				OrderNumber:     "SO-1",
				ShippingAddress: valueobject.AddressDTO{Name: "A", Line1: "B", City: "C", CountryCode: "USA"},
				LineItems:       []CreateLineItemInput{{SKU: "A", Quantity: 1}},
			},
		},
		{
			name: "duplicate sku",
			req: CreateOrderRequest{
				OrderNumber: "SO-1",
				LineItems:   []CreateLineItemInput{{SKU: "abc", Quantity: 1}, {SKU: "ABC", Quantity: 1}},
			},
		},
		{
			name: "no lines",
			req:  CreateOrderRequest{OrderNumber: "SO-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()
			_, err := f.service.CreateOrder(context.Background(), tt.req)
			assertCode(t, err, shared.CodeValidation)
			f.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	f.orderRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter fulfillment.OrderFilter) bool {
		return filter.Status == fulfillment.StatusOnHold && filter.Page == 2 && filter.PageSize == 20 &&
			filter.OrderBy == "created_at"
	})).Return([]fulfillment.FulfillmentOrder{*order}, int64(21), nil)

	orders, total, err := f.service.ListOrders(context.Background(), OrderListFilter{Status: "on_hold", Page: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestOrderService_ListOrders_UnknownRequestStatus(t *testing.T) {
	f := newOrderServiceFixture()
	_, _, err := f.service.ListOrders(context.Background(), OrderListFilter{RequestStatus: "maybe"})
	assertCode(t, err, shared.CodeValidation)
}

func TestOrderService_GetTimeline(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	now := time.Now()
	entries := []fulfillment.AuditEntry{
		{ID: uuid.New(), OrderID: order.ID, ActionType: fulfillment.ActionHold, PreviousValue: "OPEN", NewValue: "OTHER", PerformedBy: testActor, PerformedAt: now, Sequence: 1},
		{ID: uuid.New(), OrderID: order.ID, ActionType: fulfillment.ActionRelease, PreviousValue: "OTHER", NewValue: "OPEN", PerformedBy: testActor, PerformedAt: now, Sequence: 2},
	}
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.auditRepo.On("FindByOrderID", mock.Anything, order.ID).Return(entries, nil)

	timeline, err := f.service.GetTimeline(context.Background(), order.ID)

	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "HOLD", timeline[0].ActionType)
	assert.Equal(t, "RELEASE", timeline[1].ActionType)
	assert.Equal(t, int64(2), timeline[1].Sequence)
}

func TestOrderService_ListFulfillments(t *testing.T) {
	f := newOrderServiceFixture()
	order := newTestOrder(t)
	records := []fulfillment.Fulfillment{{
		ID:      uuid.New(),
		OrderID: order.ID,
		Lines:   []fulfillment.FulfillmentLine{{LineItemID: order.LineItems[0].ID, Quantity: 2}},
	}}
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.fulfillments.On("FindByOrderID", mock.Anything, order.ID).Return(records, nil)

	out, err := f.service.ListFulfillments(context.Background(), order.ID)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Quantity)
}
