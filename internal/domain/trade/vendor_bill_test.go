package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVendorBill(t *testing.T) {
	at := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	productID := uuid.New()

	t.Run("creates open bill with numbered lines", func(t *testing.T) {
		bill, err := NewVendorBill(uuid.New(), "Parts Ltd", "PL-991", nil, []VendorBillLineInput{
			{ProductID: productID, Quantity: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(10)},
			{ProductID: productID, Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(30)},
		}, at)
		require.NoError(t, err)
		assert.Equal(t, VendorBillStatusOpen, bill.Status)
		require.Len(t, bill.Lines, 2)
		assert.Equal(t, 2, bill.Lines[1].LineNo)
		assert.Equal(t, bill.ID, bill.Lines[0].BillID)
	})

	t.Run("rejects non-positive cost", func(t *testing.T) {
		_, err := NewVendorBill(uuid.New(), "Parts Ltd", "PL-992", nil, []VendorBillLineInput{
			{ProductID: productID, Quantity: decimal.NewFromInt(2), UnitCost: decimal.Zero},
		}, at)
		assert.ErrorContains(t, err, "unit cost must be positive")
	})

	t.Run("mark received is idempotent", func(t *testing.T) {
		bill, err := NewVendorBill(uuid.New(), "Parts Ltd", "PL-993", nil, []VendorBillLineInput{
			{ProductID: productID, Quantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(5)},
		}, at)
		require.NoError(t, err)

		bill.MarkReceived(at.Add(time.Hour))
		bill.MarkReceived(at.Add(2 * time.Hour))
		assert.Equal(t, VendorBillStatusReceived, bill.Status)
		assert.Equal(t, at.Add(time.Hour), *bill.ReceivedAt)
		assert.Equal(t, 2, bill.GetVersion())
	})
}
