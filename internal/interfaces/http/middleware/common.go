// Package middleware provides HTTP middleware for the fulfillment engine.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names read and written by the middleware
const (
	RequestIDHeader = "X-Request-ID"
	ActorHeader     = "X-Actor"
)

// DefaultActor is recorded as performedBy when no operator identifies itself
const DefaultActor = "system"

// MaxRequestIDLength bounds client-supplied request IDs.
const MaxRequestIDLength = 128

// maxActorLength matches the performed_by column width.
const maxActorLength = 100

// RequestID adds a unique request ID to each request. A client-supplied
// X-Request-ID is kept when it is not too long.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(logger.GinRequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

// Actor resolves the acting operator from X-Actor, falling back to DefaultActor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = DefaultActor
		}
		if len(actor) > maxActorLength {
			actor = actor[:maxActorLength]
		}
		c.Set(logger.GinActorKey, actor)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or the raw header.
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(logger.GinRequestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}

// GetActor returns the operator resolved by Actor
func GetActor(c *gin.Context) string {
	if actor := c.GetString(logger.GinActorKey); actor != "" {
		return actor
	}
	return DefaultActor
}

// Timeout bounds the request context. Services observe the deadline while
// waiting for order locks and in the database driver.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Secure adds the standard defensive response headers for a JSON API
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
