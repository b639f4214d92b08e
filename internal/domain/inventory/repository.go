package inventory

import (
	"context"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMoveRepository persists the append-only ledger
type StockMoveRepository interface {
	// Append inserts a new move. There is no update or delete.
	Append(ctx context.Context, move *StockMove) error

	// FindInflows returns every inflow move of a product, oldest first
	FindInflows(ctx context.Context, tenantID, productID uuid.UUID) ([]StockMove, error)

	// SumQuantity returns the signed sum of moves for a product in a warehouse
	SumQuantity(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (decimal.Decimal, error)

	// ExistsForSourceLine reports whether a move was already produced by a source line
	ExistsForSourceLine(ctx context.Context, tenantID uuid.UUID, sourceType SourceType, sourceLineID uuid.UUID) (bool, error)

	// FindByProduct lists the moves of a product, newest first
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) ([]StockMove, int64, error)
}

// ProductCostRepository persists the average-cost projection
type ProductCostRepository interface {
	// Find returns the cost record, or shared.ErrNotFound
	Find(ctx context.Context, tenantID, productID uuid.UUID) (*ProductCost, error)

	// GetOrCreateForUpdate returns the record under a row lock, inserting a
	// zero-cost record first when none exists
	GetOrCreateForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*ProductCost, error)

	// Save upserts the record
	Save(ctx context.Context, cost *ProductCost) error
}

// StockOnHandRepository persists the on-hand projection
type StockOnHandRepository interface {
	// Upsert writes the projection row for (tenant, product, warehouse)
	Upsert(ctx context.Context, onHand *StockOnHand) error

	// Find returns the projection row, or shared.ErrNotFound
	Find(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (*StockOnHand, error)
}

// NegativeStockAlertRepository persists negative-stock alerts
type NegativeStockAlertRepository interface {
	Save(ctx context.Context, alert *NegativeStockAlert) error
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]NegativeStockAlert, error)
}
