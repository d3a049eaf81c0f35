package dto

import (
	"net/http"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when an order command or request body is rejected as invalid
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when an order or pick session does not exist
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeLocked is used when the per-order lock could not be acquired in time
	ErrCodeLocked = "ERR_LOCKED"
)

// Order state error codes
const (
	// ErrCodeInvalidTransition is used when the order's state does not allow the command
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
	// ErrCodeHeldOrder is used when the command is blocked by an active hold
	ErrCodeHeldOrder = "ERR_HELD_ORDER"
	// ErrCodeNotOnHold is used when releasing an order that is not held
	ErrCodeNotOnHold = "ERR_NOT_ON_HOLD"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeLocked:              http.StatusLocked,

	// Order state errors -> 409 Conflict
	ErrCodeInvalidTransition: http.StatusConflict,
	ErrCodeHeldOrder:         http.StatusConflict,
	ErrCodeNotOnHold:         http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeInvalidTransition:      ErrCodeInvalidTransition,
	shared.CodeHeldOrder:              ErrCodeHeldOrder,
	shared.CodeNotOnHold:              ErrCodeNotOnHold,
	shared.CodeValidation:             ErrCodeValidation,
	shared.CodeConcurrentModification: ErrCodeConcurrencyConflict,
	shared.CodeLockUnavailable:        ErrCodeLocked,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
