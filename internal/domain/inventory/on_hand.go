package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockOnHand is the denormalized current quantity of a product in a warehouse.
// It always equals the signed sum of the product's moves in that warehouse.
type StockOnHand struct {
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	UpdatedAt   time.Time
}

// SumQuantities returns the signed sum of move quantities
func SumQuantities(moves []StockMove) decimal.Decimal {
	total := decimal.Zero
	for _, m := range moves {
		total = total.Add(m.Quantity)
	}
	return total
}

// NegativeStockAlert is an advisory record raised when a move drives on-hand
// below zero. It never blocks the move.
type NegativeStockAlert struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	StockMoveID uuid.UUID
	OnHand      decimal.Decimal
	CreatedAt   time.Time
}

// NewNegativeStockAlert returns an alert when onHand is negative, nil otherwise
func NewNegativeStockAlert(move *StockMove, onHand decimal.Decimal, at time.Time) *NegativeStockAlert {
	if !onHand.IsNegative() {
		return nil
	}
	return &NegativeStockAlert{
		ID:          uuid.New(),
		TenantID:    move.TenantID,
		ProductID:   move.ProductID,
		WarehouseID: move.WarehouseID,
		StockMoveID: move.ID,
		OnHand:      onHand,
		CreatedAt:   at,
	}
}
