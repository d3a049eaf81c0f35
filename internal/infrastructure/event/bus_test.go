package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEvent(eventType string) *fulfillment.OrderTransitionedEvent {
	return &fulfillment.OrderTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "FulfillmentOrder", uuid.New()),
		OrderNumber:     "SO-1001",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
	block      chan struct{}
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

// ============================================
// Synchronous delivery
// ============================================

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(fulfillment.EventTypeOrderHeld)
	bus.Subscribe(handler)

	event := newTestEvent(fulfillment.EventTypeOrderHeld)
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_KeepsEventOrder(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)

	first := newTestEvent(fulfillment.EventTypeOrderHeld)
	second := newTestEvent(fulfillment.EventTypeOrderReleased)
	require.NoError(t, bus.Publish(context.Background(), first, second))

	assert.Equal(t, []shared.DomainEvent{first, second}, handler.getHandled())
}

func TestInMemoryEventBus_Publish_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler(fulfillment.EventTypeFulfillmentCreated)
	failing.err = errors.New("webhook down")
	panicking := newTestHandler(fulfillment.EventTypeFulfillmentCreated)
	panicking.panics = true
	healthy := newTestHandler(fulfillment.EventTypeFulfillmentCreated)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeFulfillmentCreated))

	require.NoError(t, err)
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, panicking.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(fulfillment.EventTypeOrderCancelled)
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeOrderHeld)))

	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(fulfillment.EventTypeOrderHeld)
	bus.Subscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeOrderHeld))
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeOrderHeld))

	assert.Len(t, handler.getHandled(), 1)
}

// ============================================
// Asynchronous delivery
// ============================================

func TestInMemoryEventBus_Async_DrainsOnStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(2, 16))
	handler := newTestHandler(fulfillment.EventTypeTrackingUpdated)
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeTrackingUpdated)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	assert.Len(t, handler.getHandled(), 10)
}

func TestInMemoryEventBus_Async_DeliversWhileRunning(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(2, 8))
	handler := testutil.NewMockEventHandler("TestEvent")
	other := testutil.NewMockEventHandler(fulfillment.EventTypeOrderHeld)
	bus.Subscribe(handler)
	bus.Subscribe(other)
	require.NoError(t, bus.Start(context.Background()))
	defer func() {
		_ = bus.Stop(context.Background())
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), testutil.NewTestEvent("TestEvent")))
	}

	require.True(t, testutil.WaitForEventCount(t, handler, 3, time.Second))
	testutil.AssertNever(t, func() bool { return other.HandledCount() > 0 }, 50*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, "test-data", handler.Handled()[0].(*testutil.TestEvent).Data)
}

func TestInMemoryEventBus_Async_HandlerSurvivesRequestCancel(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(1, 1))
	handler := newTestHandler(fulfillment.EventTypeOrderHeld)
	handler.block = make(chan struct{})
	var seen context.Context
	ctxHandler := &ctxCapture{testHandler: handler, seen: &seen}
	bus.Subscribe(ctxHandler)
	require.NoError(t, bus.Start(context.Background()))

	reqCtx, cancelReq := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(reqCtx, newTestEvent(fulfillment.EventTypeOrderHeld)))
	cancelReq()
	close(handler.block)

	require.NoError(t, bus.Stop(context.Background()))
	require.Len(t, handler.getHandled(), 1)
	assert.NoError(t, seen.Err())
}

func TestInMemoryEventBus_Async_PublishAfterStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(1, 1))
	bus.Subscribe(newTestHandler(fulfillment.EventTypeOrderHeld))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Stop(context.Background()))

	err := bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeOrderHeld))

	assert.ErrorIs(t, err, ErrBusStopped)
}

func TestInMemoryEventBus_Async_StopTimesOut(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsync(1, 1))
	handler := newTestHandler(fulfillment.EventTypeOrderHeld)
	handler.block = make(chan struct{})
	defer close(handler.block)
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(fulfillment.EventTypeOrderHeld)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)
}

type ctxCapture struct {
	*testHandler
	seen *context.Context
}

func (c *ctxCapture) Handle(ctx context.Context, event shared.DomainEvent) error {
	*c.seen = ctx
	return c.testHandler.Handle(ctx, event)
}
