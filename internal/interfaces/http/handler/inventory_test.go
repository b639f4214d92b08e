package handler_test

import (
	"net/http"
	"testing"

	appinv "github.com/erp/posting/internal/application/inventory"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *apiFixture) receive(t *testing.T, qty, cost string) handler.MoveResultResponse {
	t.Helper()
	w, resp := f.do(t, http.MethodPost, "/inventory/moves", map[string]any{
		"product_id":   f.widget.ID,
		"warehouse_id": f.warehouseID,
		"move_type":    "receipt",
		"quantity":     qty,
		"unit_cost":    cost,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[handler.MoveResultResponse](t, resp.Data)
}

func TestInventoryHandler_PostMoveAndQueries(t *testing.T) {
	f := newAPIFixture(t)
	result := f.receive(t, "4", "10")
	assert.Equal(t, "receipt", result.Move.MoveType)
	assert.Equal(t, "manual", result.Move.SourceType)
	assert.True(t, result.OnHand.Equal(decimal.NewFromInt(4)))
	assert.Nil(t, result.NegativeStock)

	productPath := "/inventory/products/" + f.widget.ID.String()

	w, resp := f.do(t, http.MethodGet, productPath+"/on-hand?warehouse_id="+f.warehouseID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	onHand := decode[handler.OnHandResponse](t, resp.Data)
	assert.True(t, onHand.Quantity.Equal(decimal.NewFromInt(4)))

	w, resp = f.do(t, http.MethodGet, productPath+"/cost", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cost := decode[appinv.ProductCostResponse](t, resp.Data)
	assert.True(t, cost.AverageCost.Equal(decimal.NewFromInt(10)), cost.AverageCost.String())

	w, resp = f.do(t, http.MethodPost, productPath+"/cost/recalculate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cost = decode[appinv.ProductCostResponse](t, resp.Data)
	assert.True(t, cost.AverageCost.Equal(decimal.NewFromInt(10)))

	w, resp = f.do(t, http.MethodGet, productPath+"/moves", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), resp.Meta.Total)

	w, _ = f.do(t, http.MethodGet, productPath+"/on-hand", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, productPath+"/moves?warehouse_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryHandler_NegativeStockAlert(t *testing.T) {
	f := newAPIFixture(t)
	f.receive(t, "1", "10")

	w, resp := f.do(t, http.MethodPost, "/inventory/moves", map[string]any{
		"product_id":   f.widget.ID,
		"warehouse_id": f.warehouseID,
		"move_type":    "adjustment_out",
		"quantity":     "-3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[handler.MoveResultResponse](t, resp.Data)
	require.NotNil(t, result.NegativeStock)
	assert.True(t, result.NegativeStock.OnHand.Equal(decimal.NewFromInt(-2)))

	w, resp = f.do(t, http.MethodGet, "/inventory/products/"+f.widget.ID.String()+"/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]handler.NegativeStockAlertResponse](t, resp.Data), 1)
}

func TestInventoryHandler_MoveRejections(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{
			name:   "receipt without cost",
			body:   map[string]any{"product_id": f.widget.ID, "warehouse_id": f.warehouseID, "move_type": "receipt", "quantity": "1"},
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeMissingUnitCost,
		},
		{
			name:   "wrong sign",
			body:   map[string]any{"product_id": f.widget.ID, "warehouse_id": f.warehouseID, "move_type": "sale", "quantity": "2"},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeInvalidInput,
		},
		{
			name:   "unknown move type",
			body:   map[string]any{"product_id": f.widget.ID, "warehouse_id": f.warehouseID, "move_type": "teleport", "quantity": "1"},
			status: http.StatusBadRequest,
			code:   dto.ErrCodeInvalidInput,
		},
		{
			name:   "unknown product",
			body:   map[string]any{"product_id": uuid.New(), "warehouse_id": f.warehouseID, "move_type": "adjustment_in", "quantity": "1"},
			status: http.StatusNotFound,
			code:   dto.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := f.do(t, http.MethodPost, "/inventory/moves", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInventoryHandler_VendorBillFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.receive(t, "2", "10")

	w, resp := f.do(t, http.MethodPost, "/inventory/vendor-bills", map[string]any{
		"supplier_name": "Parts Ltd",
		"bill_number":   "PB-100",
		"warehouse_id":  f.warehouseID,
		"lines": []map[string]any{{
			"product_id": f.widget.ID,
			"quantity":   "2",
			"unit_cost":  "20",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bill := decode[appinv.VendorBillResponse](t, resp.Data)
	assert.Equal(t, 1, bill.LineCount)
	billPath := "/inventory/vendor-bills/" + bill.ID.String()

	w, resp = f.do(t, http.MethodGet, billPath+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[[]appinv.PreviewLine](t, resp.Data)
	require.Len(t, preview, 1)
	assert.True(t, preview[0].OnHand.Equal(decimal.NewFromInt(4)))
	assert.True(t, preview[0].AverageCost.Equal(decimal.NewFromInt(15)), preview[0].AverageCost.String())

	w, resp = f.do(t, http.MethodPost, billPath+"/receive", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	received := decode[appinv.ReceiveResult](t, resp.Data)
	assert.Len(t, received.Posted, 1)
	assert.Empty(t, received.Skipped)

	w, resp = f.do(t, http.MethodPost, billPath+"/receive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	received = decode[appinv.ReceiveResult](t, resp.Data)
	assert.Empty(t, received.Posted)
	assert.Len(t, received.Skipped, 1)

	w, resp = f.do(t, http.MethodGet, "/inventory/products/"+f.widget.ID.String()+"/cost", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cost := decode[appinv.ProductCostResponse](t, resp.Data)
	assert.True(t, cost.AverageCost.Equal(decimal.NewFromInt(15)), cost.AverageCost.String())

	w, _ = f.do(t, http.MethodGet, "/inventory/vendor-bills/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = f.do(t, http.MethodPost, "/inventory/vendor-bills", map[string]any{"bill_number": "PB-101"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}
