package posting

import (
	"context"

	appinv "github.com/erp/posting/internal/application/inventory"
	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/shared"
)

// TransactionScope runs a posting unit of work in one database transaction
type TransactionScope interface {
	// Execute runs fn within a database transaction. A returned error rolls it back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories extends the ledger repositories with everything a
// post touches: the document, its series lock, the chain tail, and the
// compliance, audit and outbox logs.
type TransactionalRepositories interface {
	appinv.TransactionalRepositories

	DocumentRepo() document.DocumentRepository
	SequenceAllocator() document.SequenceAllocator
	ChainReader() document.ChainReader
	TenantRepo() identity.TenantRepository
	ComplianceEventRepo() compliance.EventRepository
	AuditLogRepo() compliance.AuditLogRepository
	OutboxRepo() shared.OutboxRepository
}
