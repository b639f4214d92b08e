package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveType_Classes(t *testing.T) {
	for _, mt := range InflowMoveTypes {
		assert.True(t, mt.IsInflow(), mt)
		assert.False(t, mt.IsOutflow(), mt)
	}
	for _, mt := range OutflowMoveTypes {
		assert.True(t, mt.IsOutflow(), mt)
		assert.False(t, mt.IsInflow(), mt)
	}
	assert.False(t, MoveType("loss").IsValid())
	assert.True(t, MoveTypeReceipt.RequiresExplicitCost())
	assert.False(t, MoveTypeReturnIn.RequiresExplicitCost())
	assert.False(t, MoveTypeSale.RequiresExplicitCost())
}

func TestNewStockMove(t *testing.T) {
	base := NewStockMoveParams{
		TenantID:    uuid.New(),
		ProductID:   uuid.New(),
		WarehouseID: uuid.New(),
		MovedAt:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("computes total cost from absolute quantity", func(t *testing.T) {
		p := base
		p.MoveType = MoveTypeSale
		p.Quantity = dec("-3")
		p.UnitCost = dec("1.23456")

		m, err := NewStockMove(p)
		require.NoError(t, err)
		assert.Equal(t, "3.7037", m.TotalCost.StringFixed(4))
		assert.Equal(t, SourceTypeManual, m.SourceType)
	})

	t.Run("rejects sale with positive quantity", func(t *testing.T) {
		p := base
		p.MoveType = MoveTypeSale
		p.Quantity = dec("1")

		_, err := NewStockMove(p)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, CodeInvalidMoveSign, de.Code)
	})

	t.Run("rejects receipt with negative quantity", func(t *testing.T) {
		p := base
		p.MoveType = MoveTypeReceipt
		p.Quantity = dec("-1")
		p.UnitCost = dec("5")

		_, err := NewStockMove(p)
		assert.ErrorContains(t, err, "requires a positive quantity")
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		p := base
		p.MoveType = MoveTypeAdjustmentIn
		p.Quantity = decimal.Zero

		_, err := NewStockMove(p)
		assert.Error(t, err)
	})

	t.Run("rejects unknown move type", func(t *testing.T) {
		p := base
		p.MoveType = MoveType("shrinkage")
		p.Quantity = dec("-1")

		_, err := NewStockMove(p)
		assert.ErrorContains(t, err, "Unsupported move type")
	})
}

func TestResolveUnitCost(t *testing.T) {
	avg := dec("4.5")

	t.Run("receipt requires positive cost", func(t *testing.T) {
		_, err := ResolveUnitCost(MoveTypeReceipt, nil, avg)
		assert.ErrorContains(t, err, "requires a positive unit cost")

		_, err = ResolveUnitCost(MoveTypeAdjustmentIn, costPtr("0"), avg)
		assert.Error(t, err)

		got, err := ResolveUnitCost(MoveTypeReceipt, costPtr("9"), avg)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("9")))
	})

	t.Run("return and outflow fall back to average", func(t *testing.T) {
		got, err := ResolveUnitCost(MoveTypeReturnIn, nil, avg)
		require.NoError(t, err)
		assert.True(t, got.Equal(avg))

		got, err = ResolveUnitCost(MoveTypeSale, nil, avg)
		require.NoError(t, err)
		assert.True(t, got.Equal(avg))

		got, err = ResolveUnitCost(MoveTypeTransferOut, costPtr("2"), avg)
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("2")))
	})
}

func TestNewNegativeStockAlert(t *testing.T) {
	m := mustMove(t, MoveTypeSale, "-2", "1")
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, NewNegativeStockAlert(&m, dec("0"), at))
	alert := NewNegativeStockAlert(&m, dec("-2"), at)
	require.NotNil(t, alert)
	assert.Equal(t, m.ID, alert.StockMoveID)
	assert.True(t, alert.OnHand.Equal(dec("-2")))
}
