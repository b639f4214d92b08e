package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidInput covers every INVALID_* and NO_* domain code
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeMissingTenant is used when X-Tenant-ID or X-User-ID is absent or malformed
	ErrCodeMissingTenant = "ERR_MISSING_TENANT"
)

// Resource error codes
const (
	ErrCodeForbidden           = "ERR_FORBIDDEN"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeIdempotencyConflict = "ERR_IDEMPOTENCY_CONFLICT"
)

// Posting error codes
const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeDocumentLocked      = "ERR_DOCUMENT_LOCKED"
	ErrCodeProductNotStockable = "ERR_PRODUCT_NOT_STOCKABLE"
	ErrCodeMissingUnitCost     = "ERR_MISSING_UNIT_COST"
	ErrCodeNoDefaultWarehouse  = "ERR_NO_DEFAULT_WAREHOUSE"
	ErrCodeChainEncoding       = "ERR_CHAIN_ENCODING_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeMissingTenant: http.StatusBadRequest,

	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeIdempotencyConflict: http.StatusConflict,
	ErrCodeDocumentLocked:      http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeProductNotStockable: http.StatusUnprocessableEntity,
	ErrCodeMissingUnitCost:     http.StatusUnprocessableEntity,
	ErrCodeNoDefaultWarehouse:  http.StatusUnprocessableEntity,

	ErrCodeChainEncoding: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"FORBIDDEN":             ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"DOCUMENT_LOCKED":       ErrCodeDocumentLocked,
	"CHAIN_ENCODING_FAILED": ErrCodeChainEncoding,
	"PRODUCT_NOT_STOCKABLE": ErrCodeProductNotStockable,
	"MISSING_UNIT_COST":     ErrCodeMissingUnitCost,
	"NO_DEFAULT_WAREHOUSE":  ErrCodeNoDefaultWarehouse,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Unlisted INVALID_* and NO_* codes are input errors; anything else
// is returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "NO_") {
		return ErrCodeInvalidInput
	}
	return code
}
