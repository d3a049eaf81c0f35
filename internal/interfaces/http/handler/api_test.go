package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/erp/fulfillment/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOperator = "ops@example.com"

// testAPI is the full HTTP surface over an in-memory sqlite database
type testAPI struct {
	engine *gin.Engine
}

// busyLocker never grants a lock
type busyLocker struct{}

func (busyLocker) Lock(_ context.Context, orderID uuid.UUID) (func(), error) {
	return nil, shared.NewDomainErrorf(shared.CodeLockUnavailable, "order %s is busy", orderID)
}

func newTestAPI(t *testing.T, locker fulfillmentapp.OrderLocker) *testAPI {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	if locker == nil {
		locker = cache.NewLocalOrderLocker(time.Second)
	}
	log := zap.NewNop()
	orderRepo := persistence.NewGormFulfillmentOrderRepository(db)
	orders := fulfillmentapp.NewOrderService(
		orderRepo,
		persistence.NewGormAuditRepository(db),
		persistence.NewGormFulfillmentRepository(db),
		locker,
		log,
	)
	shipping := fulfillmentapp.NewShippingMethodService(
		persistence.NewGormShippingMethodMappingRepository(db),
		fulfillmentapp.ShippingCatalog{
			WarehouseMethods: []string{"wh-ground", "wh-express"},
			ChannelMethods:   []string{"Standard", "Express"},
		},
		log,
	)
	sessions := cache.NewInMemoryPickSessionStore(time.Hour, 0, log)
	t.Cleanup(func() { _ = sessions.Close() })
	picks := fulfillmentapp.NewPickSessionService(orderRepo, sessions, orders, shipping, log)
	bulk := fulfillmentapp.NewBulkExecutor(orders, fulfillmentapp.DefaultBulkConfig(), log)

	engine := router.NewEngine(router.EngineConfig{ServiceName: "test", Logger: log})
	router.NewRouter(engine).
		Register(NewOrderHandler(orders)).
		Register(NewBulkHandler(bulk)).
		Register(NewPickSessionHandler(picks)).
		Register(NewShippingMethodHandler(shipping)).
		Setup()
	return &testAPI{engine: engine}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Perform(t, a.engine, method, "/api/v1"+path, body, map[string]string{
		middleware.ActorHeader: testOperator,
	})
}

func decodeAs[T any](t *testing.T, w *httptest.ResponseRecorder) APIResponse[T] {
	t.Helper()
	return testutil.JSONResponseAs[APIResponse[T]](t, w)
}

func (a *testAPI) createOrder(t *testing.T, number string) fulfillmentapp.OrderResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/orders", map[string]any{
		"order_number": number,
		"location_id":  "loc-1",
		"shipping_address": map[string]string{
			"name":         "Ada Lovelace",
			"line1":        "1 Analytical Way",
			"city":         "London",
			"country_code": "GB",
		},
		"line_items": []map[string]any{
			{"sku": "ABC-1", "product_name": "Widget", "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeAs[fulfillmentapp.OrderResponse](t, w).Data
}

// ============================================
// Orders
// ============================================

func TestOrderAPI_CreateAndGet(t *testing.T) {
	api := newTestAPI(t, nil)
	created := api.createOrder(t, "#1001")

	assert.Equal(t, "OPEN", created.Status)
	assert.Equal(t, "UNSUBMITTED", created.RequestStatus)

	w := api.do(t, http.MethodGet, "/orders/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeAs[fulfillmentapp.OrderResponse](t, w).Data
	assert.Equal(t, "#1001", got.OrderNumber)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, 3, got.LineItems[0].RemainingQuantity)
}

func TestOrderAPI_CreateValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/orders", map[string]any{"order_number": "#1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
}

func TestOrderAPI_NotFoundAndBadID(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeNotFound)

	w = api.do(t, http.MethodGet, "/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderAPI_HoldAndRelease(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#1002")
	path := "/orders/" + order.ID.String()

	w := api.do(t, http.MethodPost, path+"/hold", map[string]string{"reason": "INVENTORY_OUT_OF_STOCK"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	held := decodeAs[fulfillmentapp.OrderResponse](t, w).Data
	assert.Equal(t, "ON_HOLD", held.Status)
	require.NotNil(t, held.HoldReason)
	assert.Equal(t, "INVENTORY_OUT_OF_STOCK", *held.HoldReason)

	w = api.do(t, http.MethodPost, path+"/fulfill", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeHeldOrder)

	w = api.do(t, http.MethodPost, path+"/release", nil)
	require.Equal(t, http.StatusOK, w.Code)
	released := decodeAs[fulfillmentapp.OrderResponse](t, w).Data
	assert.Equal(t, "OPEN", released.Status)
	assert.Nil(t, released.HoldReason)

	w = api.do(t, http.MethodPost, path+"/release", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeNotOnHold)

	w = api.do(t, http.MethodGet, path+"/timeline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	timeline := decodeAs[[]fulfillmentapp.AuditEntryResponse](t, w).Data
	require.Len(t, timeline, 2)
	assert.Equal(t, testOperator, timeline[0].PerformedBy)
}

func TestOrderAPI_HoldRejectsUnknownReason(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#1003")

	w := api.do(t, http.MethodPost, "/orders/"+order.ID.String()+"/hold", map[string]string{"reason": "BORED"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeValidation)
}

func TestOrderAPI_FulfillWithoutBodyShipsEverything(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#1004")
	path := "/orders/" + order.ID.String()

	w := api.do(t, http.MethodPost, path+"/fulfill", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decodeAs[fulfillmentapp.FulfillOrderResponse](t, w).Data
	assert.Equal(t, "CLOSED", result.Order.Status)
	assert.Equal(t, 3, result.Fulfillment.Quantity)

	w = api.do(t, http.MethodGet, path+"/fulfillments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeAs[[]fulfillmentapp.FulfillmentResponse](t, w).Data, 1)
}

func TestOrderAPI_RequestResubmitAfterReject(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#1005")
	path := "/orders/" + order.ID.String()

	w := api.do(t, http.MethodPost, path+"/request/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "SUBMITTED", decodeAs[fulfillmentapp.OrderResponse](t, w).Data.RequestStatus)

	w = api.do(t, http.MethodPost, path+"/request/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, path+"/request/reject", map[string]string{"reason": "Out of stock"})
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decodeAs[fulfillmentapp.OrderResponse](t, w).Data
	assert.Equal(t, "REJECTED", rejected.RequestStatus)
	assert.Equal(t, "Out of stock", rejected.RequestReason)

	w = api.do(t, http.MethodPost, path+"/request/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUBMITTED", decodeAs[fulfillmentapp.OrderResponse](t, w).Data.RequestStatus)
}

func TestOrderAPI_List(t *testing.T) {
	api := newTestAPI(t, nil)
	first := api.createOrder(t, "#2001")
	api.createOrder(t, "#2002")
	w := api.do(t, http.MethodPost, "/orders/"+first.ID.String()+"/hold", map[string]string{"reason": "OTHER"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/orders?status=ON_HOLD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeAs[[]fulfillmentapp.OrderResponse](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, first.ID, resp.Data[0].ID)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)

	w = api.do(t, http.MethodGet, "/orders?status=LOST", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderAPI_CloseRequiresProgress(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#1007")
	path := "/orders/" + order.ID.String()

	w := api.do(t, http.MethodPost, path+"/close", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInvalidTransition)

	w = api.do(t, http.MethodPost, path+"/in-progress", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(t, http.MethodPost, path+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CLOSED", decodeAs[fulfillmentapp.OrderResponse](t, w).Data.Status)
}

func TestOrderAPI_LockUnavailable(t *testing.T) {
	api := newTestAPI(t, busyLocker{})
	order := api.createOrder(t, "#1006")

	w := api.do(t, http.MethodPost, "/orders/"+order.ID.String()+"/close", nil)

	assert.Equal(t, http.StatusLocked, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeLocked)
}

// ============================================
// Bulk
// ============================================

func TestBulkAPI_FulfillSkipsHeldOrder(t *testing.T) {
	api := newTestAPI(t, nil)
	held := api.createOrder(t, "#3001")
	open := api.createOrder(t, "#3002")
	w := api.do(t, http.MethodPost, "/orders/"+held.ID.String()+"/hold", map[string]string{"reason": "AWAITING_PAYMENT"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/bulk/fulfill", map[string]any{
		"order_ids": []uuid.UUID{held.ID, open.ID},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeAs[fulfillmentapp.BulkOperationResult](t, w).Data
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, held.ID, result.Errors[0].OrderID)
	assert.Equal(t, shared.CodeHeldOrder, result.Errors[0].Code)
}

func TestBulkAPI_TrackingMissingNumberFailsOnlyThatOrder(t *testing.T) {
	api := newTestAPI(t, nil)
	tracked := api.createOrder(t, "#3101")
	untracked := api.createOrder(t, "#3102")
	for _, o := range []fulfillmentapp.OrderResponse{tracked, untracked} {
		w := api.do(t, http.MethodPost, "/orders/"+o.ID.String()+"/fulfill", nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := api.do(t, http.MethodPost, "/bulk/tracking", map[string]any{
		"updates": []map[string]any{
			{"order_id": tracked.ID, "tracking_number": "1Z999", "carrier": "UPS"},
			{"order_id": untracked.ID, "carrier": "UPS"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeAs[fulfillmentapp.BulkOperationResult](t, w).Data
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, untracked.ID, result.Errors[0].OrderID)
	assert.Equal(t, shared.CodeValidation, result.Errors[0].Code)
}

func TestBulkAPI_EmptyBatch(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/bulk/release", map[string]any{"order_ids": []uuid.UUID{}})

	require.Equal(t, http.StatusOK, w.Code)
	result := decodeAs[fulfillmentapp.BulkOperationResult](t, w).Data
	assert.True(t, result.Success)
	assert.Zero(t, result.Processed)
}

// ============================================
// Pick sessions
// ============================================

func TestPickSessionAPI_Flow(t *testing.T) {
	api := newTestAPI(t, nil)
	order := api.createOrder(t, "#4001")

	w := api.do(t, http.MethodPost, "/orders/"+order.ID.String()+"/pick-sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decodeAs[fulfillmentapp.PickSessionResponse](t, w).Data
	assert.Equal(t, testOperator, session.Operator)
	path := "/pick-sessions/" + session.ID.String()

	for range 4 {
		w = api.do(t, http.MethodPost, path+"/scan", map[string]string{"sku": "abc-1"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	session = decodeAs[fulfillmentapp.PickSessionResponse](t, w).Data
	assert.Equal(t, 3, session.Lines[0].PickedQuantity)
	assert.True(t, session.Lines[0].Verified)

	w = api.do(t, http.MethodPost, path+"/scan", map[string]string{"sku": "NOPE"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	failed := decodeAs[fulfillmentapp.PickSessionResponse](t, w)
	require.NotNil(t, failed.Error)
	assert.NotEmpty(t, failed.Data.LastError)
	assert.Equal(t, 3, failed.Data.Lines[0].PickedQuantity)

	w = api.do(t, http.MethodPost, path+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodPost, path+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SHIP", decodeAs[fulfillmentapp.PickSessionResponse](t, w).Data.Phase)

	w = api.do(t, http.MethodPut, path+"/shipping", map[string]string{"carrier": "UPS", "tracking_number": "1Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, path+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decodeAs[fulfillmentapp.PickSessionResponse](t, w).Data
	assert.Equal(t, "COMPLETE", done.Phase)
	assert.NotNil(t, done.FulfillmentID)

	w = api.do(t, http.MethodGet, "/orders/"+order.ID.String(), nil)
	assert.Equal(t, "CLOSED", decodeAs[fulfillmentapp.OrderResponse](t, w).Data.Status)

	w = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ============================================
// Shipping methods
// ============================================

func TestShippingMethodAPI_ReplaceAndGet(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPut, "/locations/loc-1/shipping-methods", map[string]any{
		"entries": []map[string]string{{"warehouse_method_id": "wh-express", "channel_method_name": "Express"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/locations/loc-1/shipping-methods", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mapping := decodeAs[fulfillmentapp.ShippingMethodMappingResponse](t, w).Data
	require.Len(t, mapping.Entries, 1)
	assert.Equal(t, "Express", mapping.Entries[0].ChannelMethodName)
	assert.Len(t, mapping.WarehouseMethods, 2)

	w = api.do(t, http.MethodPut, "/locations/loc-1/shipping-methods", map[string]any{
		"entries": []map[string]string{{"warehouse_method_id": "wh-drone", "channel_method_name": "Express"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
