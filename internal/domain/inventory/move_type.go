package inventory

// MoveType is the fixed vocabulary of stock movements
type MoveType string

const (
	MoveTypeReceipt       MoveType = "receipt"
	MoveTypeAdjustmentIn  MoveType = "adjustment_in"
	MoveTypeTransferIn    MoveType = "transfer_in"
	MoveTypeReturnIn      MoveType = "return_in"
	MoveTypeSale          MoveType = "sale"
	MoveTypeAdjustmentOut MoveType = "adjustment_out"
	MoveTypeTransferOut   MoveType = "transfer_out"
	MoveTypeReturnOut     MoveType = "return_out"
)

// InflowMoveTypes lists the move types that add stock
var InflowMoveTypes = []MoveType{MoveTypeReceipt, MoveTypeAdjustmentIn, MoveTypeTransferIn, MoveTypeReturnIn}

// OutflowMoveTypes lists the move types that remove stock
var OutflowMoveTypes = []MoveType{MoveTypeSale, MoveTypeAdjustmentOut, MoveTypeTransferOut, MoveTypeReturnOut}

// String returns the string representation of MoveType
func (t MoveType) String() string {
	return string(t)
}

// IsInflow returns true for move types that require a positive quantity
func (t MoveType) IsInflow() bool {
	for _, m := range InflowMoveTypes {
		if m == t {
			return true
		}
	}
	return false
}

// IsOutflow returns true for move types that require a negative quantity
func (t MoveType) IsOutflow() bool {
	for _, m := range OutflowMoveTypes {
		if m == t {
			return true
		}
	}
	return false
}

// IsValid returns true if the move type belongs to the vocabulary
func (t MoveType) IsValid() bool {
	return t.IsInflow() || t.IsOutflow()
}

// RequiresExplicitCost reports whether the caller must supply a positive unit cost.
// Returns come back at the current average, every other inflow carries its own cost.
func (t MoveType) RequiresExplicitCost() bool {
	return t.IsInflow() && t != MoveTypeReturnIn
}
