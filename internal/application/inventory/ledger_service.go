package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/domain/trade"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService posts stock moves and keeps the cost and on-hand
// projections in step with the ledger.
type LedgerService struct {
	scope          TransactionScope
	moveRepo       inventory.StockMoveRepository
	costRepo       inventory.ProductCostRepository
	onHandRepo     inventory.StockOnHandRepository
	alertRepo      inventory.NegativeStockAlertRepository
	billRepo       trade.VendorBillRepository
	tenantRepo     identity.TenantRepository
	clock          shared.Clock
	metrics        *telemetry.PostingMetrics
	negativeAlerts bool
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	moveRepo inventory.StockMoveRepository,
	costRepo inventory.ProductCostRepository,
	onHandRepo inventory.StockOnHandRepository,
	alertRepo inventory.NegativeStockAlertRepository,
	billRepo trade.VendorBillRepository,
) *LedgerService {
	return &LedgerService{
		scope:          scope,
		moveRepo:       moveRepo,
		costRepo:       costRepo,
		onHandRepo:     onHandRepo,
		alertRepo:      alertRepo,
		billRepo:       billRepo,
		clock:          shared.SystemClock{},
		negativeAlerts: true,
	}
}

// SetTenantRepository sets the tenant repository used to resolve default warehouses
func (s *LedgerService) SetTenantRepository(repo identity.TenantRepository) {
	s.tenantRepo = repo
}

// SetClock replaces the wall clock
func (s *LedgerService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetMetrics sets the business metrics recorder
func (s *LedgerService) SetMetrics(m *telemetry.PostingMetrics) {
	s.metrics = m
}

// SetNegativeStockAlerts toggles writing advisory alerts when on-hand goes negative
func (s *LedgerService) SetNegativeStockAlerts(enabled bool) {
	s.negativeAlerts = enabled
}

// PostMove posts a single move in its own transaction
func (s *LedgerService) PostMove(ctx context.Context, cmd PostMoveCommand) (*MoveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger.post_move",
		telemetry.AttrTenantID.String(cmd.TenantID.String()),
		telemetry.AttrProductID.String(cmd.ProductID.String()),
		telemetry.AttrMoveType.String(string(cmd.MoveType)),
	)
	defer span.End()

	var result *MoveResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.PostMoveTx(ctx, repos, cmd)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.afterCommit(ctx, result)
	return result, nil
}

// PostMoveTx posts a move on a transaction the caller already holds.
// Steps run in a fixed order: stockable check, vocabulary and sign, cost
// resolution, append, cost recalculation for inflows, on-hand projection,
// negative-stock alert.
func (s *LedgerService) PostMoveTx(ctx context.Context, repos TransactionalRepositories, cmd PostMoveCommand) (*MoveResult, error) {
	product, err := repos.ProductRepo().FindByIDForTenant(ctx, cmd.TenantID, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsStockable() {
		return nil, shared.NewDomainError(inventory.CodeProductNotStockable, "Product "+product.Code+" does not track stock")
	}

	if err := inventory.ValidateMove(cmd.MoveType, cmd.Quantity); err != nil {
		return nil, err
	}

	average := decimal.Zero
	if !cmd.MoveType.RequiresExplicitCost() && cmd.UnitCost == nil {
		cost, err := repos.ProductCostRepo().GetOrCreateForUpdate(ctx, cmd.TenantID, cmd.ProductID)
		if err != nil {
			return nil, err
		}
		average = cost.AverageCost
	}
	unitCost, err := inventory.ResolveUnitCost(cmd.MoveType, cmd.UnitCost, average)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	move, err := inventory.NewStockMove(inventory.NewStockMoveParams{
		TenantID:    cmd.TenantID,
		ProductID:   cmd.ProductID,
		WarehouseID: cmd.WarehouseID,
		LocationID:  cmd.LocationID,
		MoveType:    cmd.MoveType,
		Quantity:    cmd.Quantity,
		UnitCost:    unitCost,
		Source:      cmd.Source,
		OperatorID:  cmd.OperatorID,
		MovedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.StockMoveRepo().Append(ctx, move); err != nil {
		return nil, err
	}

	if move.IsInflow() {
		if _, err := s.recalculateTx(ctx, repos, cmd.TenantID, cmd.ProductID, now); err != nil {
			return nil, err
		}
	}

	onHand, err := repos.StockMoveRepo().SumQuantity(ctx, cmd.TenantID, cmd.ProductID, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	if err := repos.OnHandRepo().Upsert(ctx, &inventory.StockOnHand{
		TenantID:    cmd.TenantID,
		ProductID:   cmd.ProductID,
		WarehouseID: cmd.WarehouseID,
		Quantity:    onHand,
		UpdatedAt:   now,
	}); err != nil {
		return nil, err
	}

	result := &MoveResult{Move: move, OnHand: onHand}
	if s.negativeAlerts {
		if alert := inventory.NewNegativeStockAlert(move, onHand, now); alert != nil {
			if err := repos.AlertRepo().Save(ctx, alert); err != nil {
				return nil, err
			}
			result.Alert = alert
		}
	}
	return result, nil
}

// recalculateTx locks the cost row and rebuilds it from the full inflow history
func (s *LedgerService) recalculateTx(ctx context.Context, repos TransactionalRepositories, tenantID, productID uuid.UUID, at time.Time) (*inventory.ProductCost, error) {
	cost, err := repos.ProductCostRepo().GetOrCreateForUpdate(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	inflows, err := repos.StockMoveRepo().FindInflows(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	cost.Recalculate(inflows, at)
	if err := repos.ProductCostRepo().Save(ctx, cost); err != nil {
		return nil, err
	}
	return cost, nil
}

// AfterCommit logs and counts the advisory outcome of a committed move.
// Callers that post through PostMoveTx invoke it once their transaction commits.
func (s *LedgerService) AfterCommit(ctx context.Context, result *MoveResult) {
	s.afterCommit(ctx, result)
}

func (s *LedgerService) afterCommit(ctx context.Context, result *MoveResult) {
	if result == nil || result.Alert == nil {
		return
	}
	s.metrics.RecordNegativeStock(ctx, result.Alert.TenantID)
	logger.L(ctx).Warn("Stock on hand went negative",
		logger.TenantID(result.Alert.TenantID),
		logger.ProductID(result.Alert.ProductID),
		zap.String("warehouse_id", result.Alert.WarehouseID.String()),
		zap.String("on_hand", result.Alert.OnHand.String()),
	)
}

// RecalculateProductCost rebuilds the average cost of a product from its ledger
func (s *LedgerService) RecalculateProductCost(ctx context.Context, tenantID, productID uuid.UUID) (*ProductCostResponse, error) {
	var cost *inventory.ProductCost
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindByIDForTenant(ctx, tenantID, productID); err != nil {
			return err
		}
		var err error
		cost, err = s.recalculateTx(ctx, repos, tenantID, productID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Product cost recalculated",
		logger.TenantID(tenantID),
		logger.ProductID(productID),
		zap.String("average_cost", cost.AverageCost.String()),
	)
	resp := ToProductCostResponse(cost)
	return &resp, nil
}

// GetProductCost returns the current average cost, zero when never received
func (s *LedgerService) GetProductCost(ctx context.Context, tenantID, productID uuid.UUID) (*ProductCostResponse, error) {
	cost, err := s.costRepo.Find(ctx, tenantID, productID)
	if errors.Is(err, shared.ErrNotFound) {
		cost = inventory.NewProductCost(tenantID, productID, s.clock.Now())
	} else if err != nil {
		return nil, err
	}
	resp := ToProductCostResponse(cost)
	return &resp, nil
}

// GetOnHand returns the on-hand quantity of a product in a warehouse
func (s *LedgerService) GetOnHand(ctx context.Context, tenantID, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	onHand, err := s.onHandRepo.Find(ctx, tenantID, productID, warehouseID)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return onHand.Quantity, nil
}

// ListMoves lists the ledger of a product
func (s *LedgerService) ListMoves(ctx context.Context, tenantID, productID uuid.UUID, filter MoveListFilter) ([]StockMoveResponse, int64, error) {
	f := shared.DefaultFilter()
	f.OrderBy = "moved_at"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.WarehouseID != "" {
		warehouseID, err := uuid.Parse(filter.WarehouseID)
		if err != nil {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, "Invalid warehouse ID")
		}
		f.Filters["warehouse_id"] = warehouseID
	}
	if filter.MoveType != "" {
		f.Filters["move_type"] = filter.MoveType
	}

	moves, total, err := s.moveRepo.FindByProduct(ctx, tenantID, productID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]StockMoveResponse, len(moves))
	for i := range moves {
		out[i] = ToStockMoveResponse(&moves[i])
	}
	return out, total, nil
}

// ListNegativeStockAlerts lists the advisory alerts of a product
func (s *LedgerService) ListNegativeStockAlerts(ctx context.Context, tenantID, productID uuid.UUID) ([]inventory.NegativeStockAlert, error) {
	return s.alertRepo.FindByProduct(ctx, tenantID, productID)
}
