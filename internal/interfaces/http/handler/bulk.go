package handler

import (
	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/gin-gonic/gin"
)

// BulkHandler exposes the bulk order commands. A bulk call answers 200 with
// per-order outcomes even when some orders fail.
type BulkHandler struct {
	BaseHandler
	executor *fulfillmentapp.BulkExecutor
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(executor *fulfillmentapp.BulkExecutor) *BulkHandler {
	return &BulkHandler{executor: executor}
}

func (h *BulkHandler) respond(c *gin.Context, result *fulfillmentapp.BulkOperationResult, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Fulfill godoc
// @Summary      Fulfill many orders
// @Tags         bulk
// @Param        request body fulfillmentapp.BulkFulfillRequest true "Orders"
// @Success      200 {object} APIResponse[fulfillmentapp.BulkOperationResult]
// @Failure      400 {object} ErrorResponse
// @Router       /bulk/fulfill [post]
func (h *BulkHandler) Fulfill(c *gin.Context) {
	var req fulfillmentapp.BulkFulfillRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.executor.BulkFulfill(c.Request.Context(), req, actor(c))
	h.respond(c, result, err)
}

// Hold godoc
// @Summary      Hold many orders with one reason
// @Tags         bulk
// @Param        request body fulfillmentapp.BulkHoldRequest true "Orders and reason"
// @Success      200 {object} APIResponse[fulfillmentapp.BulkOperationResult]
// @Router       /bulk/hold [post]
func (h *BulkHandler) Hold(c *gin.Context) {
	var req fulfillmentapp.BulkHoldRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.executor.BulkHold(c.Request.Context(), req, actor(c))
	h.respond(c, result, err)
}

// Release godoc
// @Summary      Release many orders
// @Tags         bulk
// @Param        request body fulfillmentapp.BulkReleaseRequest true "Orders"
// @Success      200 {object} APIResponse[fulfillmentapp.BulkOperationResult]
// @Router       /bulk/release [post]
func (h *BulkHandler) Release(c *gin.Context) {
	var req fulfillmentapp.BulkReleaseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.executor.BulkRelease(c.Request.Context(), req, actor(c))
	h.respond(c, result, err)
}

// UpdateTracking godoc
// @Summary      Update tracking on many orders
// @Tags         bulk
// @Param        request body fulfillmentapp.BulkTrackingUpdateRequest true "Per-order tracking"
// @Success      200 {object} APIResponse[fulfillmentapp.BulkOperationResult]
// @Router       /bulk/tracking [post]
func (h *BulkHandler) UpdateTracking(c *gin.Context) {
	var req fulfillmentapp.BulkTrackingUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.executor.BulkUpdateTracking(c.Request.Context(), req, actor(c))
	h.respond(c, result, err)
}

// RegisterRoutes mounts the bulk routes on rg
func (h *BulkHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bulk := rg.Group("/bulk")
	bulk.POST("/fulfill", h.Fulfill)
	bulk.POST("/hold", h.Hold)
	bulk.POST("/release", h.Release)
	bulk.POST("/tracking", h.UpdateTracking)
}
