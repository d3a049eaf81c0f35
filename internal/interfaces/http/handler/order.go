package handler

import (
	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler exposes fulfillment order queries and single-order commands
type OrderHandler struct {
	BaseHandler
	orderService *fulfillmentapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *fulfillmentapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create godoc
// @Summary      Ingest a fulfillment order
// @Description  Creates an OPEN, UNSUBMITTED order from a channel order
// @Tags         fulfillment-orders
// @Accept       json
// @Produce      json
// @Param        request body fulfillmentapp.CreateOrderRequest true "Order"
// @Success      201 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req fulfillmentapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List godoc
// @Summary      List fulfillment orders
// @Tags         fulfillment-orders
// @Produce      json
// @Param        status         query string false "Order status"
// @Param        request_status query string false "Request status"
// @Param        location_id    query string false "Assigned location"
// @Param        page           query int    false "Page" default(1)
// @Param        page_size      query int    false "Page size" default(20)
// @Success      200 {object} APIResponse[[]fulfillmentapp.OrderResponse]
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var filter fulfillmentapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Page, filter.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// GetByID godoc
// @Summary      Get a fulfillment order
// @Tags         fulfillment-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Timeline godoc
// @Summary      Get an order's audit trail
// @Description  Entries ordered by performed_at then sequence
// @Tags         fulfillment-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]fulfillmentapp.AuditEntryResponse]
// @Router       /orders/{id}/timeline [get]
func (h *OrderHandler) Timeline(c *gin.Context) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entries, err := h.orderService.GetTimeline(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Fulfillments godoc
// @Summary      List an order's fulfillments
// @Tags         fulfillment-orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[[]fulfillmentapp.FulfillmentResponse]
// @Router       /orders/{id}/fulfillments [get]
func (h *OrderHandler) Fulfillments(c *gin.Context) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := h.orderService.ListFulfillments(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// command runs a bodiless order command
func (h *OrderHandler) command(c *gin.Context, run func(orderID uuid.UUID, actor string) (*fulfillmentapp.OrderResponse, error)) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := run(orderID, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// commandWithBody binds req (required when strict) and runs an order command
func commandWithBody[T any](h *OrderHandler, c *gin.Context, strict bool, run func(orderID uuid.UUID, req T, actor string) (*fulfillmentapp.OrderResponse, error)) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req T
	var bound bool
	if strict {
		bound = h.bindJSON(c, &req)
	} else {
		bound = h.bindOptionalJSON(c, &req)
	}
	if !bound {
		return
	}
	order, err := run(orderID, req, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// MarkInProgress godoc
// @Summary      Move an order to IN_PROGRESS
// @Tags         fulfillment-orders
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id}/in-progress [post]
func (h *OrderHandler) MarkInProgress(c *gin.Context) {
	h.command(c, func(id uuid.UUID, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.MarkInProgress(c.Request.Context(), id, by)
	})
}

// Schedule godoc
// @Summary      Schedule an order
// @Tags         fulfillment-orders
// @Param        id      path string                              true "Order ID" format(uuid)
// @Param        request body fulfillmentapp.ScheduleOrderRequest true "Schedule"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/schedule [post]
func (h *OrderHandler) Schedule(c *gin.Context) {
	commandWithBody(h, c, true, func(id uuid.UUID, req fulfillmentapp.ScheduleOrderRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.Schedule(c.Request.Context(), id, req, by)
	})
}

// Close godoc
// @Summary      Close an order
// @Tags         fulfillment-orders
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/close [post]
func (h *OrderHandler) Close(c *gin.Context) {
	h.command(c, func(id uuid.UUID, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.Close(c.Request.Context(), id, by)
	})
}

// Hold godoc
// @Summary      Place an order on hold
// @Tags         fulfillment-orders
// @Param        id      path string                          true "Order ID" format(uuid)
// @Param        request body fulfillmentapp.HoldOrderRequest true "Hold reason"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id}/hold [post]
func (h *OrderHandler) Hold(c *gin.Context) {
	commandWithBody(h, c, true, func(id uuid.UUID, req fulfillmentapp.HoldOrderRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.Hold(c.Request.Context(), id, req, by)
	})
}

// Release godoc
// @Summary      Release an order's hold
// @Tags         fulfillment-orders
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id}/release [post]
func (h *OrderHandler) Release(c *gin.Context) {
	h.command(c, func(id uuid.UUID, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.Release(c.Request.Context(), id, by)
	})
}

// Fulfill godoc
// @Summary      Create a fulfillment
// @Description  Fulfills the given lines, or every remaining unit when lines is empty
// @Tags         fulfillment-orders
// @Param        id      path string                             true "Order ID" format(uuid)
// @Param        request body fulfillmentapp.FulfillOrderRequest false "Fulfillment"
// @Success      201 {object} APIResponse[fulfillmentapp.FulfillOrderResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *gin.Context) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req fulfillmentapp.FulfillOrderRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.orderService.Fulfill(c.Request.Context(), orderID, req, actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// UpdateTracking godoc
// @Summary      Update the latest tracking entry
// @Tags         fulfillment-orders
// @Param        id      path string                               true "Order ID" format(uuid)
// @Param        request body fulfillmentapp.UpdateTrackingRequest true "Tracking"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/tracking [put]
func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	commandWithBody(h, c, true, func(id uuid.UUID, req fulfillmentapp.UpdateTrackingRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.UpdateTracking(c.Request.Context(), id, req, by)
	})
}

// MoveLocation godoc
// @Summary      Reassign an order's fulfillment location
// @Tags         fulfillment-orders
// @Param        id      path string                             true "Order ID" format(uuid)
// @Param        request body fulfillmentapp.MoveLocationRequest true "Location"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/location [put]
func (h *OrderHandler) MoveLocation(c *gin.Context) {
	commandWithBody(h, c, true, func(id uuid.UUID, req fulfillmentapp.MoveLocationRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.MoveLocation(c.Request.Context(), id, req, by)
	})
}

// SubmitRequest godoc
// @Summary      Submit a fulfillment request to the 3PL
// @Tags         fulfillment-requests
// @Param        id      path string                              true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.SubmitRequestRequest false "Message"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/request/submit [post]
func (h *OrderHandler) SubmitRequest(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.SubmitRequestRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.SubmitRequest(c.Request.Context(), id, req, by)
	})
}

// AcceptRequest godoc
// @Summary      Accept a submitted fulfillment request
// @Tags         fulfillment-requests
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/request/accept [post]
func (h *OrderHandler) AcceptRequest(c *gin.Context) {
	h.command(c, func(id uuid.UUID, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.AcceptRequest(c.Request.Context(), id, by)
	})
}

// RejectRequest godoc
// @Summary      Reject a submitted fulfillment request
// @Tags         fulfillment-requests
// @Param        id      path string                       true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.ReasonRequest false "Reason"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/request/reject [post]
func (h *OrderHandler) RejectRequest(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.ReasonRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.RejectRequest(c.Request.Context(), id, req, by)
	})
}

// RequestCancellation godoc
// @Summary      Ask the 3PL to cancel an accepted request
// @Tags         fulfillment-requests
// @Param        id      path string                        true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.MessageRequest false "Message"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/cancellation/request [post]
func (h *OrderHandler) RequestCancellation(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.MessageRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.RequestCancellation(c.Request.Context(), id, req, by)
	})
}

// AcceptCancellation godoc
// @Summary      Accept a cancellation request
// @Tags         fulfillment-requests
// @Param        id      path string                        true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.MessageRequest false "Message"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/cancellation/accept [post]
func (h *OrderHandler) AcceptCancellation(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.MessageRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.AcceptCancellation(c.Request.Context(), id, req, by)
	})
}

// RejectCancellation godoc
// @Summary      Reject a cancellation request
// @Tags         fulfillment-requests
// @Param        id      path string                       true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.ReasonRequest false "Reason"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/cancellation/reject [post]
func (h *OrderHandler) RejectCancellation(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.ReasonRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.RejectCancellation(c.Request.Context(), id, req, by)
	})
}

// Cancel godoc
// @Summary      Cancel an order no fulfiller owns
// @Tags         fulfillment-orders
// @Param        id      path string                       true  "Order ID" format(uuid)
// @Param        request body fulfillmentapp.ReasonRequest false "Reason"
// @Success      200 {object} APIResponse[fulfillmentapp.OrderResponse]
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	commandWithBody(h, c, false, func(id uuid.UUID, req fulfillmentapp.ReasonRequest, by string) (*fulfillmentapp.OrderResponse, error) {
		return h.orderService.Cancel(c.Request.Context(), id, req, by)
	})
}

// RegisterRoutes mounts the order routes on rg
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/:id", h.GetByID)
	orders.GET("/:id/timeline", h.Timeline)
	orders.GET("/:id/fulfillments", h.Fulfillments)

	orders.POST("/:id/in-progress", h.MarkInProgress)
	orders.POST("/:id/schedule", h.Schedule)
	orders.POST("/:id/close", h.Close)
	orders.POST("/:id/hold", h.Hold)
	orders.POST("/:id/release", h.Release)
	orders.POST("/:id/fulfill", h.Fulfill)
	orders.PUT("/:id/tracking", h.UpdateTracking)
	orders.PUT("/:id/location", h.MoveLocation)
	orders.POST("/:id/cancel", h.Cancel)

	orders.POST("/:id/request/submit", h.SubmitRequest)
	orders.POST("/:id/request/accept", h.AcceptRequest)
	orders.POST("/:id/request/reject", h.RejectRequest)
	orders.POST("/:id/cancellation/request", h.RequestCancellation)
	orders.POST("/:id/cancellation/accept", h.AcceptCancellation)
	orders.POST("/:id/cancellation/reject", h.RejectCancellation)
}
