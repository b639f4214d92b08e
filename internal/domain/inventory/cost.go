package inventory

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostState is an on-hand position valued at a weighted average unit cost
type CostState struct {
	OnHand      decimal.Decimal
	AverageCost decimal.Decimal
}

// Receipt is an incoming quantity at a unit cost
type Receipt struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// ApplyReceipt folds a receipt into a position with the incremental weighted
// average formula. A position that ends at or below zero carries no cost.
// It is a preview: the ledger recalculation is the system of record.
func ApplyReceipt(state CostState, receipt Receipt) CostState {
	newQty := state.OnHand.Add(receipt.Quantity)
	if !newQty.IsPositive() {
		return CostState{OnHand: decimal.Zero, AverageCost: decimal.Zero}
	}
	value := state.OnHand.Mul(state.AverageCost).Add(receipt.Quantity.Mul(receipt.UnitCost))
	return CostState{
		OnHand:      shared.RoundCost(newQty),
		AverageCost: shared.RoundCost(value.Div(newQty)),
	}
}

// RecalculateAverageCost derives the weighted average from the full inflow
// history: sum of inflow total cost over sum of inflow |qty|, rounded to 4
// decimals, or zero when there is no inflow. Outflow moves are ignored.
func RecalculateAverageCost(moves []StockMove) decimal.Decimal {
	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, m := range moves {
		if !m.IsInflow() {
			continue
		}
		totalCost = totalCost.Add(m.TotalCost)
		totalQty = totalQty.Add(m.Quantity.Abs())
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return shared.RoundCost(totalCost.Div(totalQty))
}

// ProductCost is the derived average-cost projection of one product.
// It can always be rebuilt by replaying the inflow moves.
type ProductCost struct {
	TenantID       uuid.UUID
	ProductID      uuid.UUID
	AverageCost    decimal.Decimal
	RecalculatedAt time.Time
}

// NewProductCost creates a zero-cost record
func NewProductCost(tenantID, productID uuid.UUID, at time.Time) *ProductCost {
	return &ProductCost{
		TenantID:       tenantID,
		ProductID:      productID,
		AverageCost:    decimal.Zero,
		RecalculatedAt: at,
	}
}

// Recalculate replaces the average with the one derived from the given history
func (c *ProductCost) Recalculate(moves []StockMove, at time.Time) {
	c.AverageCost = RecalculateAverageCost(moves)
	c.RecalculatedAt = at
}
