package event

import (
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		types     []string
		eventType string
		want      bool
	}{
		{"matching type", []string{fulfillment.EventTypeOrderHeld}, fulfillment.EventTypeOrderHeld, true},
		{"second of several types", []string{fulfillment.EventTypeOrderHeld, fulfillment.EventTypeOrderReleased}, fulfillment.EventTypeOrderReleased, true},
		{"other type", []string{fulfillment.EventTypeOrderHeld}, fulfillment.EventTypeOrderCancelled, false},
		{"no types receives everything", nil, fulfillment.EventTypeTrackingUpdated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHandlerRegistry()
			handler := testutil.NewMockEventHandler()

			registry.Register(handler, tt.types...)

			assert.Equal(t, tt.want, registry.HasHandlers(tt.eventType))
			if tt.want {
				assert.Equal(t, []*testutil.MockEventHandler{handler}, asMocks(registry, tt.eventType))
			} else {
				assert.Empty(t, registry.GetHandlers(tt.eventType))
			}
		})
	}
}

func TestHandlerRegistry_KeepsSubscriptionOrder(t *testing.T) {
	registry := NewHandlerRegistry()
	everything := testutil.NewMockEventHandler()
	held := testutil.NewMockEventHandler()
	alsoHeld := testutil.NewMockEventHandler()

	registry.Register(everything)
	registry.Register(held, fulfillment.EventTypeOrderHeld)
	registry.Register(alsoHeld, fulfillment.EventTypeOrderHeld)

	assert.Equal(t, []*testutil.MockEventHandler{everything, held, alsoHeld}, asMocks(registry, fulfillment.EventTypeOrderHeld))
	assert.Equal(t, []*testutil.MockEventHandler{everything}, asMocks(registry, fulfillment.EventTypeOrderReleased))
}

func TestHandlerRegistry_RegisterTwiceWidens(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := testutil.NewMockEventHandler()

	registry.Register(handler, fulfillment.EventTypeOrderHeld)
	registry.Register(handler, fulfillment.EventTypeOrderReleased)

	assert.Len(t, registry.GetHandlers(fulfillment.EventTypeOrderHeld), 1)
	assert.Len(t, registry.GetHandlers(fulfillment.EventTypeOrderReleased), 1)
	assert.False(t, registry.HasHandlers(fulfillment.EventTypeOrderCancelled))

	registry.Register(handler)
	assert.Len(t, registry.GetHandlers(fulfillment.EventTypeOrderCancelled), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := testutil.NewMockEventHandler(fulfillment.EventTypeOrderHeld)
	second := testutil.NewMockEventHandler()

	registry.Register(first, fulfillment.EventTypeOrderHeld)
	registry.Register(second)
	registry.Unregister(first)

	assert.Equal(t, []*testutil.MockEventHandler{second}, asMocks(registry, fulfillment.EventTypeOrderHeld))

	registry.Unregister(second)
	assert.False(t, registry.HasHandlers(fulfillment.EventTypeOrderHeld))
}

func asMocks(registry *HandlerRegistry, eventType string) []*testutil.MockEventHandler {
	handlers := registry.GetHandlers(eventType)
	result := make([]*testutil.MockEventHandler, 0, len(handlers))
	for _, h := range handlers {
		result = append(result, h.(*testutil.MockEventHandler))
	}
	return result
}
