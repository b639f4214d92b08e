package inventory

import (
	"context"

	"github.com/erp/posting/internal/domain/catalog"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/trade"
)

// TransactionScope provides transactional access to inventory repositories.
// All repository operations inside Execute share one database transaction
// and are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction. A returned error rolls it back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction.
//
// The stock move ledger is the system of record. ProductCostRepo and
// OnHandRepo hold projections that are recomputed from it on every move.
type TransactionalRepositories interface {
	// StockMoveRepo returns the append-only ledger
	StockMoveRepo() inventory.StockMoveRepository
	// ProductCostRepo returns the average-cost projection
	ProductCostRepo() inventory.ProductCostRepository
	// OnHandRepo returns the on-hand projection
	OnHandRepo() inventory.StockOnHandRepository
	// AlertRepo returns the negative-stock alert log
	AlertRepo() inventory.NegativeStockAlertRepository
	// ProductRepo returns the catalog
	ProductRepo() catalog.ProductRepository
	// VendorBillRepo returns vendor bills
	VendorBillRepo() trade.VendorBillRepository
}
