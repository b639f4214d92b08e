package inventory

import (
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType identifies what produced a stock move
type SourceType string

const (
	SourceTypeDocument   SourceType = "document"
	SourceTypeVendorBill SourceType = "vendor_bill"
	SourceTypeManual     SourceType = "manual"
)

// Validation error codes
const (
	CodeInvalidMoveType     = "INVALID_MOVE_TYPE"
	CodeInvalidMoveSign     = "INVALID_MOVE_SIGN"
	CodeMissingUnitCost     = "MISSING_UNIT_COST"
	CodeProductNotStockable = "PRODUCT_NOT_STOCKABLE"
)

// StockMove is an append-only ledger row. Moves are never edited or deleted;
// corrections are new moves.
type StockMove struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	WarehouseID  uuid.UUID
	LocationID   *uuid.UUID
	MoveType     MoveType
	Quantity     decimal.Decimal // signed: positive for inflow, negative for outflow
	UnitCost     decimal.Decimal
	TotalCost    decimal.Decimal // round(|qty| x unit cost, 4)
	SourceType   SourceType
	SourceID     *uuid.UUID
	SourceLineID *uuid.UUID
	OperatorID   *uuid.UUID
	MovedAt      time.Time
	CreatedAt    time.Time
}

// MoveSource references the document line that caused a move
type MoveSource struct {
	Type   SourceType
	ID     *uuid.UUID
	LineID *uuid.UUID
}

// NewStockMoveParams carries everything needed to build a move
type NewStockMoveParams struct {
	TenantID    uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	LocationID  *uuid.UUID
	MoveType    MoveType
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Source      MoveSource
	OperatorID  *uuid.UUID
	MovedAt     time.Time
}

// NewStockMove validates vocabulary and sign and computes the total cost.
// The unit cost must already be resolved by the caller.
func NewStockMove(p NewStockMoveParams) (*StockMove, error) {
	if p.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if p.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if p.WarehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if err := ValidateMove(p.MoveType, p.Quantity); err != nil {
		return nil, err
	}
	if p.UnitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if p.Source.Type == "" {
		p.Source.Type = SourceTypeManual
	}

	return &StockMove{
		ID:           uuid.New(),
		TenantID:     p.TenantID,
		ProductID:    p.ProductID,
		WarehouseID:  p.WarehouseID,
		LocationID:   p.LocationID,
		MoveType:     p.MoveType,
		Quantity:     p.Quantity,
		UnitCost:     p.UnitCost,
		TotalCost:    shared.RoundCost(p.Quantity.Abs().Mul(p.UnitCost)),
		SourceType:   p.Source.Type,
		SourceID:     p.Source.ID,
		SourceLineID: p.Source.LineID,
		OperatorID:   p.OperatorID,
		MovedAt:      p.MovedAt,
		CreatedAt:    p.MovedAt,
	}, nil
}

// ValidateMove checks the move type vocabulary and the quantity sign
func ValidateMove(moveType MoveType, quantity decimal.Decimal) error {
	if !moveType.IsValid() {
		return shared.NewDomainError(CodeInvalidMoveType, "Unsupported move type: "+string(moveType))
	}
	if moveType.IsInflow() && !quantity.IsPositive() {
		return shared.NewDomainError(CodeInvalidMoveSign, "Inflow move "+string(moveType)+" requires a positive quantity")
	}
	if moveType.IsOutflow() && !quantity.IsNegative() {
		return shared.NewDomainError(CodeInvalidMoveSign, "Outflow move "+string(moveType)+" requires a negative quantity")
	}
	return nil
}

// ResolveUnitCost picks the cost a move is valued at. Inflows that require an
// explicit cost fail without a positive one; everything else falls back to the
// current average when no cost is supplied.
func ResolveUnitCost(moveType MoveType, supplied *decimal.Decimal, average decimal.Decimal) (decimal.Decimal, error) {
	if moveType.RequiresExplicitCost() {
		if supplied == nil || !supplied.IsPositive() {
			return decimal.Zero, shared.NewDomainError(CodeMissingUnitCost, "Inflow move "+string(moveType)+" requires a positive unit cost")
		}
		return *supplied, nil
	}
	if supplied != nil {
		if supplied.IsNegative() {
			return decimal.Zero, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
		}
		return *supplied, nil
	}
	return average, nil
}

// IsInflow returns true if the move adds stock
func (m *StockMove) IsInflow() bool {
	return m.MoveType.IsInflow()
}
