package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBillStatus represents the status of a vendor bill
type VendorBillStatus string

const (
	VendorBillStatusOpen     VendorBillStatus = "open"
	VendorBillStatusReceived VendorBillStatus = "received"
)

// VendorBillLine is a purchased quantity of a product at a unit cost
type VendorBillLine struct {
	ID          uuid.UUID
	BillID      uuid.UUID
	LineNo      int
	ProductID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
}

// VendorBillLineInput is the caller-supplied part of a bill line
type VendorBillLineInput struct {
	ProductID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
}

// VendorBill is a supplier invoice whose lines are received into stock
type VendorBill struct {
	shared.TenantAggregateRoot
	SupplierName string
	BillNumber   string
	WarehouseID  *uuid.UUID
	Status       VendorBillStatus
	ReceivedAt   *time.Time
	Lines        []VendorBillLine
}

// NewVendorBill creates an open vendor bill
func NewVendorBill(tenantID uuid.UUID, supplierName, billNumber string, warehouseID *uuid.UUID, inputs []VendorBillLineInput, at time.Time) (*VendorBill, error) {
	if strings.TrimSpace(billNumber) == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	if len(inputs) == 0 {
		return nil, shared.NewDomainError("NO_LINES", "Vendor bill requires at least one line")
	}

	bill := &VendorBill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, at),
		SupplierName:        supplierName,
		BillNumber:          billNumber,
		WarehouseID:         warehouseID,
		Status:              VendorBillStatusOpen,
	}
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has no product", i+1))
		}
		if !in.Quantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d quantity must be positive", i+1))
		}
		if !in.UnitCost.IsPositive() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d unit cost must be positive", i+1))
		}
		bill.Lines = append(bill.Lines, VendorBillLine{
			ID:          uuid.New(),
			BillID:      bill.ID,
			LineNo:      i + 1,
			ProductID:   in.ProductID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitCost:    in.UnitCost,
		})
	}
	return bill, nil
}

// MarkReceived records that every line has produced its receipt move.
// Receiving an already received bill is a no-op.
func (b *VendorBill) MarkReceived(at time.Time) {
	if b.Status == VendorBillStatusReceived {
		return
	}
	b.Status = VendorBillStatusReceived
	b.ReceivedAt = &at
	b.MarkChanged(at)
}
