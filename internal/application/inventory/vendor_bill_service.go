package inventory

import (
	"context"
	"errors"

	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/domain/trade"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateVendorBill registers an open vendor bill
func (s *LedgerService) CreateVendorBill(ctx context.Context, tenantID uuid.UUID, req CreateVendorBillRequest) (*VendorBillResponse, error) {
	inputs := make([]trade.VendorBillLineInput, len(req.Lines))
	for i, l := range req.Lines {
		inputs[i] = trade.VendorBillLineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
		}
	}
	bill, err := trade.NewVendorBill(tenantID, req.SupplierName, req.BillNumber, req.WarehouseID, inputs, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, err
	}
	resp := ToVendorBillResponse(bill)
	return &resp, nil
}

// GetVendorBill returns a vendor bill
func (s *LedgerService) GetVendorBill(ctx context.Context, tenantID, billID uuid.UUID) (*VendorBillResponse, error) {
	bill, err := s.billRepo.FindByIDForTenant(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	resp := ToVendorBillResponse(bill)
	return &resp, nil
}

// ReceiveVendorBill posts a receipt move for every bill line that has none
// yet. Lines already received are skipped, so re-running after a partial
// failure completes the bill without duplicating stock.
func (s *LedgerService) ReceiveVendorBill(ctx context.Context, tenantID, billID uuid.UUID, operatorID *uuid.UUID) (*ReceiveResult, error) {
	result := &ReceiveResult{BillID: billID, Posted: []StockMoveResponse{}, Skipped: []uuid.UUID{}}
	var committed []*MoveResult

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		bill, err := repos.VendorBillRepo().FindForUpdate(ctx, tenantID, billID)
		if err != nil {
			return err
		}
		warehouseID, locationID, err := s.billLocation(ctx, bill)
		if err != nil {
			return err
		}

		for _, line := range bill.Lines {
			exists, err := repos.StockMoveRepo().ExistsForSourceLine(ctx, tenantID, inventory.SourceTypeVendorBill, line.ID)
			if err != nil {
				return err
			}
			if exists {
				result.Skipped = append(result.Skipped, line.ID)
				continue
			}

			unitCost := line.UnitCost
			billID, lineID := bill.ID, line.ID
			moved, err := s.PostMoveTx(ctx, repos, PostMoveCommand{
				TenantID:    tenantID,
				ProductID:   line.ProductID,
				WarehouseID: warehouseID,
				LocationID:  locationID,
				MoveType:    inventory.MoveTypeReceipt,
				Quantity:    line.Quantity,
				UnitCost:    &unitCost,
				Source: inventory.MoveSource{
					Type:   inventory.SourceTypeVendorBill,
					ID:     &billID,
					LineID: &lineID,
				},
				OperatorID: operatorID,
			})
			if err != nil {
				return err
			}
			committed = append(committed, moved)
			result.Posted = append(result.Posted, ToStockMoveResponse(moved.Move))
		}

		bill.MarkReceived(s.clock.Now())
		return repos.VendorBillRepo().UpdateStatus(ctx, bill)
	})
	if err != nil {
		return nil, err
	}

	for _, moved := range committed {
		s.afterCommit(ctx, moved)
	}
	logger.L(ctx).Info("Vendor bill received",
		logger.TenantID(tenantID),
		zap.String("bill_id", billID.String()),
		zap.Int("posted", len(result.Posted)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// PreviewVendorBill projects the average cost each line would produce,
// starting from the current on-hand and average cost of the product. Nothing
// is written. The projection folds receipts onto the running quantity, so it
// can differ from the ledger recomputation once outflows have happened.
func (s *LedgerService) PreviewVendorBill(ctx context.Context, tenantID, billID uuid.UUID) ([]PreviewLine, error) {
	bill, err := s.billRepo.FindByIDForTenant(ctx, tenantID, billID)
	if err != nil {
		return nil, err
	}
	warehouseID, _, err := s.billLocation(ctx, bill)
	if err != nil {
		return nil, err
	}

	states := make(map[uuid.UUID]inventory.CostState)
	out := make([]PreviewLine, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		state, ok := states[line.ProductID]
		if !ok {
			state, err = s.currentCostState(ctx, tenantID, line.ProductID, warehouseID)
			if err != nil {
				return nil, err
			}
		}
		state = inventory.ApplyReceipt(state, inventory.Receipt{Quantity: line.Quantity, UnitCost: line.UnitCost})
		states[line.ProductID] = state
		out = append(out, PreviewLine{
			LineNo:      line.LineNo,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			OnHand:      state.OnHand,
			AverageCost: state.AverageCost,
		})
	}
	return out, nil
}

func (s *LedgerService) currentCostState(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (inventory.CostState, error) {
	onHand, err := s.GetOnHand(ctx, tenantID, productID, warehouseID)
	if err != nil {
		return inventory.CostState{}, err
	}
	average := decimal.Zero
	cost, err := s.costRepo.Find(ctx, tenantID, productID)
	switch {
	case err == nil:
		average = cost.AverageCost
	case !errors.Is(err, shared.ErrNotFound):
		return inventory.CostState{}, err
	}
	return inventory.CostState{OnHand: onHand, AverageCost: average}, nil
}

// billLocation resolves the receiving warehouse, falling back to the tenant default
func (s *LedgerService) billLocation(ctx context.Context, bill *trade.VendorBill) (uuid.UUID, *uuid.UUID, error) {
	if bill.WarehouseID != nil {
		return *bill.WarehouseID, nil, nil
	}
	if s.tenantRepo == nil {
		return uuid.Nil, nil, shared.NewDomainError("NO_DEFAULT_WAREHOUSE", "Vendor bill has no warehouse")
	}
	t, err := s.tenantRepo.FindByID(ctx, bill.TenantID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return t.StockLocation()
}
