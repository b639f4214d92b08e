package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cancelInput struct {
	Reason string `json:"reason" binding:"required,max=10"`
	Kind   string `json:"kind" binding:"omitempty,oneof=ticket invoice"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var in cancelInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(in))
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDKey, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_ReportsJSONFieldNames(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"reason": "", "kind": "receipt"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-7", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "reason", resp.Error.Details[0].Field)
	assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	assert.Equal(t, "kind", resp.Error.Details[1].Field)
	assert.Equal(t, "Must be one of: ticket invoice", resp.Error.Details[1].Message)
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"reason":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
}

func TestHandleValidationError_Valid(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"reason": "typo"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidations_DomainTags(t *testing.T) {
	type line struct {
		Series   string          `json:"series" validate:"omitempty,series"`
		Currency string          `json:"currency" validate:"omitempty,currency"`
		Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
		Note     string          `form:"note" validate:"max=3"`
	}
	v := validator.New()
	registerValidations(v)

	require.NoError(t, v.Struct(line{Series: "2026-A/1", Currency: "EUR", Quantity: decimal.NewFromFloat(0.5)}))

	err := v.Struct(line{Series: "T 1", Currency: "eur", Quantity: decimal.Zero, Note: "long"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	messages := make(map[string]string, len(verrs))
	for _, e := range verrs {
		messages[e.Field()] = describe(e)
	}
	assert.Equal(t, "Series may contain letters, digits, '-' and '/'", messages["series"])
	assert.Equal(t, "Must be an upper-case ISO 4217 code", messages["currency"])
	assert.Equal(t, "Must be greater than 0", messages["quantity"])
	assert.Equal(t, "Must be at most 3 characters", messages["note"])
}

func TestDescribe(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Len      string `validate:"len=3"`
		UUID     string `validate:"uuid"`
		GT       int    `validate:"gt=0"`
	}

	err := validator.New().Struct(input{Min: "ab", Len: "ab", UUID: "x"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	messages := make(map[string]string, len(verrs))
	for _, e := range verrs {
		messages[e.Field()] = describe(e)
	}
	assert.Equal(t, "This field is required", messages["Required"])
	assert.Equal(t, "Must be at least 5 characters", messages["Min"])
	assert.Equal(t, "Must be exactly 3 characters", messages["Len"])
	assert.Equal(t, "Invalid UUID format", messages["UUID"])
	assert.Equal(t, "Must be greater than 0", messages["GT"])
}
