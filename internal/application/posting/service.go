package posting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	appinv "github.com/erp/posting/internal/application/inventory"
	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit actions written by the service
const (
	AuditDocumentPosted     = "document.posted"
	AuditDocumentCancelled  = "document.cancelled"
	AuditCreditNoteDrafted  = "document.credit_note_drafted"
	AuditEntityTypeDocument = "document"
)

// Options tunes the posting pipeline
type Options struct {
	// DefaultSeries maps a doc type to the series used when a command omits one
	DefaultSeries            map[string]string
	AllowMultipleCorrections bool
	QRBaseURL                string
	// MaxRetries bounds the attempts made when a post hits a lock conflict
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		DefaultSeries: map[string]string{
			string(document.DocTypeTicket):     "T",
			string(document.DocTypeInvoice):    "F",
			string(document.DocTypeCreditNote): "R",
		},
		MaxRetries:   3,
		RetryBackoff: 50 * time.Millisecond,
	}
}

// Service turns drafts into numbered, hash-chained, stock-moving documents
type Service struct {
	scope      TransactionScope
	docRepo    document.DocumentRepository
	tenantRepo identity.TenantRepository
	eventRepo  compliance.EventRepository
	auditRepo  compliance.AuditLogRepository
	ledger     *appinv.LedgerService
	hasher     compliance.Hasher
	clock      shared.Clock
	metrics    *telemetry.PostingMetrics
	publisher  shared.EventPublisher
	opts       Options
}

// NewService creates a new posting Service. The repositories passed here are
// used for reads and records that must survive a rolled back post; every
// write of a post goes through scope.
func NewService(
	scope TransactionScope,
	docRepo document.DocumentRepository,
	tenantRepo identity.TenantRepository,
	eventRepo compliance.EventRepository,
	auditRepo compliance.AuditLogRepository,
	ledger *appinv.LedgerService,
	opts Options,
) *Service {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.DefaultSeries == nil {
		opts.DefaultSeries = DefaultOptions().DefaultSeries
	}
	return &Service{
		scope:      scope,
		docRepo:    docRepo,
		tenantRepo: tenantRepo,
		eventRepo:  eventRepo,
		auditRepo:  auditRepo,
		ledger:     ledger,
		hasher:     compliance.SHA256Hasher{},
		clock:      shared.SystemClock{},
		opts:       opts,
	}
}

// SetHasher replaces the chain hasher
func (s *Service) SetHasher(h compliance.Hasher) {
	s.hasher = h
}

// SetClock replaces the wall clock
func (s *Service) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetMetrics sets the business metrics recorder
func (s *Service) SetMetrics(m *telemetry.PostingMetrics) {
	s.metrics = m
}

// postAttempt carries what one transactional attempt produced
type postAttempt struct {
	moves       []*appinv.MoveResult
	series      string
	number      int64
	encodingErr *compliance.EncodingError
}

// Post seals a draft: number, stock moves, snapshot, hash chain link, QR
// payload and the compliance, audit and outbox records, all in one
// transaction. Lock conflicts are retried up to MaxRetries attempts.
func (s *Service) Post(ctx context.Context, cmd PostCommand) (*document.Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting.post",
		telemetry.AttrTenantID.String(cmd.TenantID.String()),
		telemetry.AttrDocumentID.String(cmd.DocumentID.String()),
	)
	defer span.End()
	started := time.Now()

	// Cross-tenant access fails before any lock is taken.
	existing, err := s.docRepo.FindByID(ctx, cmd.DocumentID)
	if err != nil {
		return nil, s.failed(ctx, cmd, err, started)
	}
	if !existing.BelongsTo(cmd.TenantID) {
		return nil, s.failed(ctx, cmd, shared.ErrForbidden, started)
	}

	attempts := 0
	attempt, err := backoff.Retry(ctx, func() (*postAttempt, error) {
		attempts++
		a := &postAttempt{}
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			return s.postTx(ctx, repos, cmd, a)
		})
		if err == nil {
			return a, nil
		}
		if a.encodingErr != nil {
			s.recordEncodingFailure(ctx, cmd, a)
		}
		if shared.IsRetryable(err) {
			logger.L(ctx).Warn("Post hit a lock conflict",
				logger.DocumentID(cmd.DocumentID),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(s.retryBackOff()),
		backoff.WithMaxTries(uint(s.opts.MaxRetries)),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.failed(ctx, cmd, err, started)
	}

	for _, moved := range attempt.moves {
		s.ledger.AfterCommit(ctx, moved)
	}

	doc, err := s.docRepo.FindByIDForTenant(ctx, cmd.TenantID, cmd.DocumentID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		telemetry.AttrSeries.String(attempt.series),
		telemetry.AttrNumber.Int64(attempt.number),
	)
	s.metrics.RecordPosted(ctx, cmd.TenantID, string(doc.DocType), time.Since(started))
	logger.L(ctx).Info("Document posted",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(doc.ID),
		logger.Series(doc.Series),
		logger.Number(attempt.number),
		zap.String("full_number", doc.FullNumber),
		logger.Hash(doc.Hash),
		zap.Int("attempts", attempts),
	)
	return doc, nil
}

func (s *Service) retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.opts.RetryBackoff > 0 {
		b.InitialInterval = s.opts.RetryBackoff
	}
	return b
}

// postTx runs the posting steps on one transaction
func (s *Service) postTx(ctx context.Context, repos TransactionalRepositories, cmd PostCommand, a *postAttempt) error {
	doc, err := repos.DocumentRepo().FindForUpdate(ctx, cmd.TenantID, cmd.DocumentID)
	if err != nil {
		return err
	}
	if err := doc.CanPost(); err != nil {
		return err
	}
	tenant, err := repos.TenantRepo().FindByID(ctx, cmd.TenantID)
	if err != nil {
		return err
	}

	number, err := repos.SequenceAllocator().AllocateNextNumber(ctx, cmd.TenantID, doc.Series)
	if err != nil {
		return err
	}
	a.series, a.number = doc.Series, number

	for i := range doc.Lines {
		doc.Lines[i].Recompute()
	}
	totals := document.ComputeTotals(doc.Lines)
	doc.TotalNet, doc.TotalTax, doc.TotalGross = totals.Net, totals.Tax, totals.Gross

	moves, err := s.moveStock(ctx, repos, tenant, doc, cmd.UserID)
	if err != nil {
		return err
	}
	a.moves = moves

	fullNumber := document.FormatFullNumber(doc.Series, doc.IssueDate.UTC().Year(), number)
	snapshot := document.BuildSnapshot(doc, number, fullNumber, totals)
	payload, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	previousHash, err := repos.ChainReader().ResolvePreviousHash(ctx, cmd.TenantID, doc.Series, doc.ID)
	if err != nil {
		return err
	}
	form := compliance.Canonicalize(tenant.TaxID, doc, snapshot, previousHash, fullNumber)
	digest, err := s.hasher.Hash(form)
	if err != nil {
		var encErr *compliance.EncodingError
		if !errors.As(err, &encErr) {
			encErr = &compliance.EncodingError{Cause: err}
		}
		encErr.DocumentID = doc.ID
		a.encodingErr = encErr
		return encErr
	}

	qr := compliance.BuildQRPayload(s.opts.QRBaseURL, compliance.QRInput{
		IssuerTaxID: tenant.TaxID,
		FullNumber:  fullNumber,
		IssueDate:   doc.IssueDate,
		Gross:       totals.Gross,
		Hash:        digest.Hash,
	})

	now := s.clock.Now()
	if err := doc.Seal(document.Sealed{
		Number:           number,
		FullNumber:       fullNumber,
		Totals:           totals,
		Payload:          payload,
		CanonicalPayload: digest.Canonical,
		Hash:             digest.Hash,
		PreviousHash:     previousHash,
		QRPayload:        qr,
		PostedBy:         cmd.UserID,
		PostedAt:         now,
	}); err != nil {
		return err
	}
	if err := repos.DocumentRepo().SavePosted(ctx, doc); err != nil {
		return err
	}

	return s.recordPosted(ctx, repos, doc, cmd.UserID, now)
}

// moveStock posts one ledger move per line that references a stockable
// product and captures the move cost on the line
func (s *Service) moveStock(ctx context.Context, repos TransactionalRepositories, tenant *identity.Tenant, doc *document.Document, userID uuid.UUID) ([]*appinv.MoveResult, error) {
	var productIDs []uuid.UUID
	for _, l := range doc.Lines {
		if l.IsStockLine() {
			productIDs = append(productIDs, *l.ProductID)
		}
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	products, err := repos.ProductRepo().FindByIDs(ctx, doc.TenantID, productIDs)
	if err != nil {
		return nil, err
	}
	stockable := make(map[uuid.UUID]bool, len(products))
	for i := range products {
		stockable[products[i].ID] = products[i].IsStockable()
	}

	var (
		results     []*appinv.MoveResult
		warehouseID uuid.UUID
		locationID  *uuid.UUID
		resolved    bool
	)
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if !line.IsStockLine() {
			continue
		}
		isStockable, known := stockable[*line.ProductID]
		if !known {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product of line "+line.Description+" not found")
		}
		if !isStockable {
			continue
		}
		if !resolved {
			warehouseID, locationID, err = tenant.StockLocation()
			if err != nil {
				return nil, err
			}
			resolved = true
		}

		cmd := appinv.PostMoveCommand{
			TenantID:    doc.TenantID,
			ProductID:   *line.ProductID,
			WarehouseID: warehouseID,
			LocationID:  locationID,
			MoveType:    moveTypeFor(doc.DocType),
			Quantity:    line.Quantity.Abs(),
			Source:      documentSource(doc.ID, line.ID),
		}
		if cmd.MoveType.IsOutflow() {
			cmd.Quantity = cmd.Quantity.Neg()
		}
		if userID != uuid.Nil {
			operator := userID
			cmd.OperatorID = &operator
		}

		moved, err := s.ledger.PostMoveTx(ctx, repos, cmd)
		if err != nil {
			return nil, err
		}
		line.CaptureCost(moved.Move.UnitCost, moved.Move.TotalCost)
		results = append(results, moved)
	}
	return results, nil
}

// recordPosted appends the compliance event, the audit entry and the outbox
// entries of a freshly sealed document
func (s *Service) recordPosted(ctx context.Context, repos TransactionalRepositories, doc *document.Document, userID uuid.UUID, at time.Time) error {
	docID := doc.ID
	event, err := compliance.NewEvent(doc.TenantID, &docID, compliance.EventDocumentPosted, compliance.PostedPayload{
		Series:       doc.Series,
		Number:       *doc.Number,
		FullNumber:   doc.FullNumber,
		Hash:         doc.Hash,
		PreviousHash: doc.PreviousHash,
	}, at)
	if err != nil {
		return err
	}
	if err := repos.ComplianceEventRepo().Append(ctx, event); err != nil {
		return err
	}

	audit, err := compliance.NewAuditLog(doc.TenantID, userID, AuditDocumentPosted, AuditEntityTypeDocument, doc.ID, map[string]any{
		"full_number": doc.FullNumber,
		"total_gross": doc.TotalGross.StringFixed(2),
		"hash":        doc.Hash,
	}, at)
	if err != nil {
		return err
	}
	if err := repos.AuditLogRepo().Append(ctx, audit); err != nil {
		return err
	}

	if err := s.saveOutbox(ctx, repos, doc, at); err != nil {
		return err
	}
	return nil
}

func (s *Service) saveOutbox(ctx context.Context, repos TransactionalRepositories, doc *document.Document, at time.Time) error {
	events := doc.PendingEvents()
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(e, payload, at))
	}
	if err := repos.OutboxRepo().Save(ctx, entries...); err != nil {
		return err
	}
	doc.ClearEvents()
	return nil
}

// recordEncodingFailure writes the failure outside the rolled back transaction
func (s *Service) recordEncodingFailure(ctx context.Context, cmd PostCommand, a *postAttempt) {
	s.metrics.RecordChainFailure(ctx, cmd.TenantID, a.series)
	logger.L(ctx).Error("Canonical form could not be encoded",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(cmd.DocumentID),
		logger.Series(a.series),
		logger.Number(a.number),
		zap.Error(a.encodingErr),
	)

	docID := cmd.DocumentID
	event, err := compliance.NewEvent(cmd.TenantID, &docID, compliance.EventChainEncodingFailed, compliance.EncodingFailedPayload{
		Series: a.series,
		Number: a.number,
		Error:  a.encodingErr.Error(),
	}, s.clock.Now())
	if err == nil {
		err = s.eventRepo.Append(ctx, event)
	}
	if err != nil {
		logger.L(ctx).Error("Failed to record chain encoding failure",
			logger.DocumentID(cmd.DocumentID),
			zap.Error(err),
		)
	}
}

func (s *Service) failed(ctx context.Context, cmd PostCommand, err error, started time.Time) error {
	code := "ERROR"
	var de *shared.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	s.metrics.RecordFailure(ctx, cmd.TenantID, code, time.Since(started))
	logger.L(ctx).Warn("Document post failed",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(cmd.DocumentID),
		zap.String("code", code),
		zap.Error(err),
	)
	return err
}

// moveTypeFor picks the ledger move of a document line: sales deplete stock,
// credit notes put it back at the current average cost
func moveTypeFor(docType document.DocType) inventory.MoveType {
	if docType == document.DocTypeCreditNote {
		return inventory.MoveTypeReturnIn
	}
	return inventory.MoveTypeSale
}

func documentSource(documentID, lineID uuid.UUID) inventory.MoveSource {
	return inventory.MoveSource{Type: inventory.SourceTypeDocument, ID: &documentID, LineID: &lineID}
}
