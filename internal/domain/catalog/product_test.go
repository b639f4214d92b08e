package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	tenantID := uuid.New()
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("creates product with valid inputs", func(t *testing.T) {
		product, err := NewProduct(tenantID, "scr-iph12", "iPhone 12 screen", ProductKindStockable, at)
		require.NoError(t, err)

		assert.Equal(t, tenantID, product.TenantID)
		assert.Equal(t, "SCR-IPH12", product.Code)
		assert.True(t, product.Active)
		assert.Equal(t, at, product.CreatedAt)
		assert.True(t, product.IsStockable())
	})

	t.Run("services are not stockable", func(t *testing.T) {
		product, err := NewProduct(tenantID, "LAB-1H", "Labour hour", ProductKindService, at)
		require.NoError(t, err)
		assert.False(t, product.IsStockable())
	})

	t.Run("consumables are stockable", func(t *testing.T) {
		product, err := NewProduct(tenantID, "GLUE", "Adhesive strip", ProductKindConsumable, at)
		require.NoError(t, err)
		assert.True(t, product.IsStockable())
	})

	t.Run("fails with empty code", func(t *testing.T) {
		_, err := NewProduct(tenantID, " ", "x", ProductKindStockable, at)
		assert.ErrorContains(t, err, "code cannot be empty")
	})

	t.Run("fails with unknown kind", func(t *testing.T) {
		_, err := NewProduct(tenantID, "X", "x", ProductKind("bundle"), at)
		assert.ErrorContains(t, err, "Product kind")
	})
}
