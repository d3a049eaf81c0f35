package handler

import (
	"strings"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/gin-gonic/gin"
)

// ShippingMethodHandler manages per-location shipping method mappings
type ShippingMethodHandler struct {
	BaseHandler
	service *fulfillmentapp.ShippingMethodService
}

// NewShippingMethodHandler creates a new ShippingMethodHandler
func NewShippingMethodHandler(service *fulfillmentapp.ShippingMethodService) *ShippingMethodHandler {
	return &ShippingMethodHandler{service: service}
}

func (h *ShippingMethodHandler) locationID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > 100 {
		h.BadRequest(c, "Invalid location id")
		return "", false
	}
	return id, true
}

// Get godoc
// @Summary      Get a location's shipping method mapping
// @Tags         shipping-methods
// @Param        id path string true "Location ID"
// @Success      200 {object} APIResponse[fulfillmentapp.ShippingMethodMappingResponse]
// @Router       /locations/{id}/shipping-methods [get]
func (h *ShippingMethodHandler) Get(c *gin.Context) {
	locationID, ok := h.locationID(c)
	if !ok {
		return
	}
	mapping, err := h.service.Get(c.Request.Context(), locationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapping)
}

// Replace godoc
// @Summary      Replace a location's shipping method mapping
// @Description  Every entry must name a known warehouse method and channel method
// @Tags         shipping-methods
// @Param        id      path string                                        true "Location ID"
// @Param        request body fulfillmentapp.ReplaceShippingMethodsRequest true "Entries"
// @Success      200 {object} APIResponse[fulfillmentapp.ShippingMethodMappingResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /locations/{id}/shipping-methods [put]
func (h *ShippingMethodHandler) Replace(c *gin.Context) {
	locationID, ok := h.locationID(c)
	if !ok {
		return
	}
	var req fulfillmentapp.ReplaceShippingMethodsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	mapping, err := h.service.Replace(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, mapping)
}

// RegisterRoutes mounts the shipping method routes on rg
func (h *ShippingMethodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/locations/:id/shipping-methods", h.Get)
	rg.PUT("/locations/:id/shipping-methods", h.Replace)
}
