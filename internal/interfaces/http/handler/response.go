package handler

import (
	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
)

// APIResponse is the envelope every endpoint answers with, typed for the docs.
// @Description Response envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is a failed command on an order. The order is left untouched.
// @Description Error envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// PickSessionErrorResponse is a rejected wizard step. Data holds the session
// as it stands after the rejection, with last_error set.
// @Description Error envelope that still carries the pick session
type PickSessionErrorResponse struct {
	Success bool                                `json:"success" example:"false"`
	Data    *fulfillmentapp.PickSessionResponse `json:"data,omitempty"`
	Error   *dto.ErrorInfo                      `json:"error,omitempty"`
}
