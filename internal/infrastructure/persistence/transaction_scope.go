package persistence

import (
	"context"

	appinv "github.com/erp/posting/internal/application/inventory"
	apppost "github.com/erp/posting/internal/application/posting"
	"github.com/erp/posting/internal/domain/catalog"
	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/domain/trade"
	"gorm.io/gorm"
)

// GormInventoryTransactionScope implements the ledger TransactionScope using GORM transactions
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs fn within a database transaction
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormPostingTransactionScope implements the posting TransactionScope using GORM transactions
type GormPostingTransactionScope struct {
	db *gorm.DB
}

// NewGormPostingTransactionScope creates a new GormPostingTransactionScope
func NewGormPostingTransactionScope(db *gorm.DB) *GormPostingTransactionScope {
	return &GormPostingTransactionScope{db: db}
}

// Execute runs fn within a database transaction. The series lock taken by
// the allocator is held until this transaction ends.
func (s *GormPostingTransactionScope) Execute(ctx context.Context, fn func(repos apppost.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) StockMoveRepo() inventory.StockMoveRepository {
	return NewGormStockMoveRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductCostRepo() inventory.ProductCostRepository {
	return NewGormProductCostRepository(r.tx)
}

func (r *gormTransactionalRepositories) OnHandRepo() inventory.StockOnHandRepository {
	return NewGormStockOnHandRepository(r.tx)
}

func (r *gormTransactionalRepositories) AlertRepo() inventory.NegativeStockAlertRepository {
	return NewGormNegativeStockAlertRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) VendorBillRepo() trade.VendorBillRepository {
	return NewGormVendorBillRepository(r.tx)
}

func (r *gormTransactionalRepositories) DocumentRepo() document.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) SequenceAllocator() document.SequenceAllocator {
	return NewGormSequenceAllocator(r.tx)
}

func (r *gormTransactionalRepositories) ChainReader() document.ChainReader {
	return NewGormChainReader(r.tx)
}

func (r *gormTransactionalRepositories) TenantRepo() identity.TenantRepository {
	return NewGormTenantRepository(r.tx)
}

func (r *gormTransactionalRepositories) ComplianceEventRepo() compliance.EventRepository {
	return NewGormComplianceEventRepository(r.tx)
}

func (r *gormTransactionalRepositories) AuditLogRepo() compliance.AuditLogRepository {
	return NewGormAuditLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) OutboxRepo() shared.OutboxRepository {
	return NewGormOutboxRepository(r.tx)
}

var (
	_ appinv.TransactionScope           = (*GormInventoryTransactionScope)(nil)
	_ apppost.TransactionScope          = (*GormPostingTransactionScope)(nil)
	_ apppost.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appinv.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
)
