package handler

import (
	"errors"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PickSessionHandler exposes the pick -> pack -> ship wizard. Rejected steps
// answer with the error envelope and the session state in data, so the
// operator sees the inline error on the current phase.
type PickSessionHandler struct {
	BaseHandler
	sessions *fulfillmentapp.PickSessionService
}

// NewPickSessionHandler creates a new PickSessionHandler
func NewPickSessionHandler(sessions *fulfillmentapp.PickSessionService) *PickSessionHandler {
	return &PickSessionHandler{sessions: sessions}
}

func (h *PickSessionHandler) respond(c *gin.Context, session *fulfillmentapp.PickSessionResponse, err error) {
	if err == nil {
		h.Success(c, session)
		return
	}
	var domainErr *shared.DomainError
	if session == nil || !errors.As(err, &domainErr) {
		h.HandleError(c, err)
		return
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	resp := dto.NewErrorResponseWithRequestID(code, domainErr.Message, middleware.GetRequestID(c))
	resp.Data = session
	c.JSON(dto.GetHTTPStatus(code), resp)
}

// step runs a session command that takes no body
func (h *PickSessionHandler) step(c *gin.Context, run func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := run(id)
	h.respond(c, session, err)
}

// stepWithBody binds the body then runs a session command
func stepWithBody[T any](h *PickSessionHandler, c *gin.Context, run func(id uuid.UUID, req T) (*fulfillmentapp.PickSessionResponse, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req T
	if !h.bindJSON(c, &req) {
		return
	}
	session, err := run(id, req)
	h.respond(c, session, err)
}

// Start godoc
// @Summary      Start a pick session for an order
// @Tags         pick-sessions
// @Param        id path string true "Order ID" format(uuid)
// @Success      201 {object} APIResponse[fulfillmentapp.PickSessionResponse]
// @Failure      409 {object} ErrorResponse
// @Router       /orders/{id}/pick-sessions [post]
func (h *PickSessionHandler) Start(c *gin.Context) {
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := h.sessions.Start(c.Request.Context(), orderID, middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// Get godoc
// @Summary      Get a pick session
// @Tags         pick-sessions
// @Param        id path string true "Session handle" format(uuid)
// @Success      200 {object} APIResponse[fulfillmentapp.PickSessionResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /pick-sessions/{id} [get]
func (h *PickSessionHandler) Get(c *gin.Context) {
	h.step(c, func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Get(c.Request.Context(), id)
	})
}

// Scan godoc
// @Summary      Scan one unit by SKU
// @Tags         pick-sessions
// @Param        id      path string                     true "Session handle" format(uuid)
// @Param        request body fulfillmentapp.ScanRequest true "SKU"
// @Success      200 {object} APIResponse[fulfillmentapp.PickSessionResponse]
// @Failure      400 {object} PickSessionErrorResponse
// @Router       /pick-sessions/{id}/scan [post]
func (h *PickSessionHandler) Scan(c *gin.Context) {
	stepWithBody(h, c, func(id uuid.UUID, req fulfillmentapp.ScanRequest) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Scan(c.Request.Context(), id, req)
	})
}

// Increment godoc
// @Summary      Pick one more unit of a line
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/increment [post]
func (h *PickSessionHandler) Increment(c *gin.Context) {
	stepWithBody(h, c, func(id uuid.UUID, req fulfillmentapp.AdjustLineRequest) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Increment(c.Request.Context(), id, req)
	})
}

// Decrement godoc
// @Summary      Put back one unit of a line
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/decrement [post]
func (h *PickSessionHandler) Decrement(c *gin.Context) {
	stepWithBody(h, c, func(id uuid.UUID, req fulfillmentapp.AdjustLineRequest) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Decrement(c.Request.Context(), id, req)
	})
}

// Next godoc
// @Summary      Advance to the next phase
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/next [post]
func (h *PickSessionHandler) Next(c *gin.Context) {
	h.step(c, func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Next(c.Request.Context(), id)
	})
}

// Back godoc
// @Summary      Return to the previous phase
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/back [post]
func (h *PickSessionHandler) Back(c *gin.Context) {
	h.step(c, func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Back(c.Request.Context(), id)
	})
}

// DismissError godoc
// @Summary      Clear the session's inline error
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/dismiss-error [post]
func (h *PickSessionHandler) DismissError(c *gin.Context) {
	h.step(c, func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.DismissError(c.Request.Context(), id)
	})
}

// Pack godoc
// @Summary      Update the pack checklist and notes
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/pack [post]
func (h *PickSessionHandler) Pack(c *gin.Context) {
	stepWithBody(h, c, func(id uuid.UUID, req fulfillmentapp.PackRequest) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Pack(c.Request.Context(), id, req)
	})
}

// SetShipping godoc
// @Summary      Choose carrier, tracking and shipping method
// @Tags         pick-sessions
// @Router       /pick-sessions/{id}/shipping [put]
func (h *PickSessionHandler) SetShipping(c *gin.Context) {
	stepWithBody(h, c, func(id uuid.UUID, req fulfillmentapp.ShippingRequest) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.SetShipping(c.Request.Context(), id, req)
	})
}

// Confirm godoc
// @Summary      Create the fulfillment for the picked lines
// @Tags         pick-sessions
// @Success      200 {object} APIResponse[fulfillmentapp.PickSessionResponse]
// @Failure      409 {object} PickSessionErrorResponse
// @Router       /pick-sessions/{id}/confirm [post]
func (h *PickSessionHandler) Confirm(c *gin.Context) {
	h.step(c, func(id uuid.UUID) (*fulfillmentapp.PickSessionResponse, error) {
		return h.sessions.Confirm(c.Request.Context(), id)
	})
}

// Discard godoc
// @Summary      Abandon a pick session
// @Tags         pick-sessions
// @Success      204
// @Router       /pick-sessions/{id} [delete]
func (h *PickSessionHandler) Discard(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.sessions.Discard(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the pick session routes on rg
func (h *PickSessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/:id/pick-sessions", h.Start)

	sessions := rg.Group("/pick-sessions")
	sessions.GET("/:id", h.Get)
	sessions.DELETE("/:id", h.Discard)
	sessions.POST("/:id/scan", h.Scan)
	sessions.POST("/:id/increment", h.Increment)
	sessions.POST("/:id/decrement", h.Decrement)
	sessions.POST("/:id/next", h.Next)
	sessions.POST("/:id/back", h.Back)
	sessions.POST("/:id/dismiss-error", h.DismissError)
	sessions.POST("/:id/pack", h.Pack)
	sessions.PUT("/:id/shipping", h.SetShipping)
	sessions.POST("/:id/confirm", h.Confirm)
}
