package trade

import (
	"context"

	"github.com/google/uuid"
)

// VendorBillRepository defines the interface for vendor bill persistence
type VendorBillRepository interface {
	// FindByIDForTenant loads a bill with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*VendorBill, error)

	// FindForUpdate loads a bill with its lines and locks the bill row
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*VendorBill, error)

	// Create inserts a bill with its lines
	Create(ctx context.Context, bill *VendorBill) error

	// UpdateStatus persists the receiving status of a bill
	UpdateStatus(ctx context.Context, bill *VendorBill) error
}
