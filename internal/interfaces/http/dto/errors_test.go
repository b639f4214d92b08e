package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeMissingTenant, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDocumentLocked, http.StatusConflict},
		{ErrCodeIdempotencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeProductNotStockable, http.StatusUnprocessableEntity},
		{ErrCodeNoDefaultWarehouse, http.StatusUnprocessableEntity},
		{ErrCodeChainEncoding, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"DOCUMENT_LOCKED", ErrCodeDocumentLocked},
		{"CHAIN_ENCODING_FAILED", ErrCodeChainEncoding},
		{"NO_DEFAULT_WAREHOUSE", ErrCodeNoDefaultWarehouse},
		{"INVALID_LINE", ErrCodeInvalidInput},
		{"INVALID_MOVE_SIGN", ErrCodeInvalidInput},
		{"NO_LINES", ErrCodeInvalidInput},
		{"MISSING_UNIT_COST", ErrCodeMissingUnitCost},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse([]ValidationDetail{
		{Field: "reason", Message: "reason is required"},
	}, "req-1")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.Len(t, errObj["details"], 1)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 2, resp.Meta.Page)
}

func TestPagination_Normalize(t *testing.T) {
	p := Pagination{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)

	p = Pagination{Page: 3, PageSize: 50}.Normalize()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PageSize)
}
