package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// ErrorCodeHTTPStatus maps generic error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:             http.StatusInternalServerError,
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
}

// DomainErrorHTTPStatus maps billing domain error codes to HTTP status
// codes. Invalid-input codes become 400, business rule rejections become
// 422, lookups 404 and concurrency 409. The code itself is passed through
// to the client unchanged so callers can branch on it.
var DomainErrorHTTPStatus = map[string]int{
	// Input validation -> 400 Bad Request
	"INVALID_CLINIC":         http.StatusBadRequest,
	"INVALID_PATIENT":        http.StatusBadRequest,
	"INVALID_STAFF":          http.StatusBadRequest,
	"INVALID_AMOUNT":         http.StatusBadRequest,
	"INVALID_INVOICE_NUMBER": http.StatusBadRequest,
	"INVALID_DUE_DATE":       http.StatusBadRequest,
	"INVALID_REASON":         http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD": http.StatusBadRequest,
	"INVALID_PAYMENT_DATE":   http.StatusBadRequest,
	"INVALID_DATE_RANGE":     http.StatusBadRequest,
	"INVALID_INVOICE":        http.StatusBadRequest,
	"INVALID_INPUT":          http.StatusBadRequest,
	"NO_ALLOCATIONS":         http.StatusBadRequest,
	"TOO_MANY_ALLOCATIONS":   http.StatusBadRequest,

	// Business rules -> 422 Unprocessable Entity
	"INVALID_STATUS_TRANSITION": http.StatusUnprocessableEntity,
	"NOT_PAST_DUE":              http.StatusUnprocessableEntity,
	"ALREADY_CANCELLED":         http.StatusUnprocessableEntity,
	"HAS_PAYMENTS":              http.StatusUnprocessableEntity,
	"INVOICE_CANCELLED":         http.StatusUnprocessableEntity,
	"EXCEEDS_INVOICE_TOTAL":     http.StatusUnprocessableEntity,
	"EXCEEDS_INVOICE_BALANCE":   http.StatusUnprocessableEntity,
	"PATIENT_MISMATCH":          http.StatusUnprocessableEntity,
	"ALREADY_VOIDED":            http.StatusUnprocessableEntity,
	"PAYMENT_VOIDED":            http.StatusUnprocessableEntity,
	"OVER_ALLOCATED":            http.StatusUnprocessableEntity,
	"DUPLICATE_ALLOCATION":      http.StatusUnprocessableEntity,
	"INVALID_STATE":             http.StatusUnprocessableEntity,

	// Lookups -> 404 Not Found
	"INVOICE_NOT_FOUND": http.StatusNotFound,
	"PAYMENT_NOT_FOUND": http.StatusNotFound,
	"NOT_FOUND":         http.StatusNotFound,

	// Concurrency -> 409 Conflict
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"ALREADY_EXISTS":       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := DomainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
