package inventory_test

import (
	"context"
	"testing"

	appinv "github.com/erp/posting/internal/application/inventory"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *ledgerFixture) createBill(t *testing.T, warehouseID *uuid.UUID, lines ...appinv.VendorBillLineRequest) uuid.UUID {
	t.Helper()
	bill, err := f.svc.CreateVendorBill(context.Background(), f.tenantID, appinv.CreateVendorBillRequest{
		SupplierName: "Supplier SL",
		BillNumber:   "FV-" + uuid.NewString()[:8],
		WarehouseID:  warehouseID,
		Lines:        lines,
	})
	require.NoError(t, err)
	assert.Equal(t, "open", bill.Status)
	return bill.ID
}

func (f *ledgerFixture) billLine(qty, unitCost int64) appinv.VendorBillLineRequest {
	return appinv.VendorBillLineRequest{
		ProductID: f.product.ID,
		Quantity:  decimal.NewFromInt(qty),
		UnitCost:  decimal.NewFromInt(unitCost),
	}
}

func TestLedgerService_ReceiveVendorBill(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	billID := f.createBill(t, &f.warehouseID, f.billLine(2, 10), f.billLine(2, 20))

	result, err := f.svc.ReceiveVendorBill(ctx, f.tenantID, billID, nil)
	require.NoError(t, err)
	assert.Len(t, result.Posted, 2)
	assert.Empty(t, result.Skipped)
	for _, m := range result.Posted {
		assert.Equal(t, "receipt", m.MoveType)
		assert.Equal(t, "vendor_bill", m.SourceType)
		require.NotNil(t, m.SourceID)
		assert.Equal(t, billID, *m.SourceID)
	}

	pc, err := f.svc.GetProductCost(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, pc.AverageCost.Equal(decimal.NewFromInt(15)), "got %s", pc.AverageCost)

	bill, err := f.svc.GetVendorBill(ctx, f.tenantID, billID)
	require.NoError(t, err)
	assert.Equal(t, "received", bill.Status)
	assert.NotNil(t, bill.ReceivedAt)
}

func TestLedgerService_ReceiveVendorBill_Idempotent(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	billID := f.createBill(t, &f.warehouseID, f.billLine(3, 4))

	_, err := f.svc.ReceiveVendorBill(ctx, f.tenantID, billID, nil)
	require.NoError(t, err)

	again, err := f.svc.ReceiveVendorBill(ctx, f.tenantID, billID, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Posted)
	assert.Len(t, again.Skipped, 1)

	onHand, err := f.svc.GetOnHand(ctx, f.tenantID, f.product.ID, f.warehouseID)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(3)))
}

func TestLedgerService_ReceiveVendorBill_TenantDefaultWarehouse(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	billID := f.createBill(t, nil, f.billLine(1, 5))

	_, err := f.svc.ReceiveVendorBill(ctx, f.tenantID, billID, nil)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NO_DEFAULT_WAREHOUSE", domainErr.Code)

	moves, _, err := f.svc.ListMoves(ctx, f.tenantID, f.product.ID, appinv.MoveListFilter{})
	require.NoError(t, err)
	assert.Empty(t, moves, "failed receive must not leave moves behind")
}

func TestLedgerService_ReceiveVendorBill_NotFound(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.svc.ReceiveVendorBill(context.Background(), f.tenantID, uuid.New(), nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// The preview folds receipts onto the running on-hand while the ledger
// averages every inflow ever received. After stock has been sold down to
// zero the two disagree.
func TestLedgerService_PreviewDivergesFromLedgerAfterOutflows(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	f.post(t, inventory.MoveTypeReceipt, 2, cost(10))
	f.post(t, inventory.MoveTypeSale, -2, nil)

	billID := f.createBill(t, &f.warehouseID, f.billLine(2, 20))

	preview, err := f.svc.PreviewVendorBill(ctx, f.tenantID, billID)
	require.NoError(t, err)
	require.Len(t, preview, 1)
	assert.True(t, preview[0].OnHand.Equal(decimal.NewFromInt(2)))
	assert.True(t, preview[0].AverageCost.Equal(decimal.NewFromInt(20)), "got %s", preview[0].AverageCost)

	_, err = f.svc.ReceiveVendorBill(ctx, f.tenantID, billID, nil)
	require.NoError(t, err)

	pc, err := f.svc.GetProductCost(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	assert.True(t, pc.AverageCost.Equal(decimal.NewFromInt(15)), "got %s", pc.AverageCost)
}

func TestLedgerService_PreviewVendorBill_ChainsLinesOfSameProduct(t *testing.T) {
	f := newLedgerFixture(t)

	f.post(t, inventory.MoveTypeReceipt, 2, cost(10))
	billID := f.createBill(t, &f.warehouseID, f.billLine(2, 20), f.billLine(4, 5))

	preview, err := f.svc.PreviewVendorBill(context.Background(), f.tenantID, billID)
	require.NoError(t, err)
	require.Len(t, preview, 2)
	assert.True(t, preview[0].AverageCost.Equal(decimal.NewFromInt(15)))
	assert.True(t, preview[1].OnHand.Equal(decimal.NewFromInt(8)))
	assert.True(t, preview[1].AverageCost.Equal(decimal.NewFromInt(10)), "got %s", preview[1].AverageCost)
}

func TestLedgerService_CreateVendorBill_Invalid(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.svc.CreateVendorBill(context.Background(), f.tenantID, appinv.CreateVendorBillRequest{
		BillNumber: "FV-1",
		Lines:      []appinv.VendorBillLineRequest{f.billLine(0, 1)},
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_LINE", domainErr.Code)
}
