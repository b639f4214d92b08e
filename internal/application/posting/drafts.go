package posting

import (
	"context"
	"time"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateDraft creates a draft document. Series and currency fall back to the
// configured series of the doc type and the tenant currency.
func (s *Service) CreateDraft(ctx context.Context, cmd CreateDraftCommand) (*document.Document, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	series := cmd.Series
	if series == "" {
		series = s.opts.DefaultSeries[string(cmd.DocType)]
	}
	currency := cmd.Currency
	if currency == "" {
		currency = tenant.Currency
	}

	now := s.clock.Now()
	doc, err := document.NewDraft(document.DraftParams{
		TenantID:    cmd.TenantID,
		Series:      series,
		DocType:     cmd.DocType,
		IssueDate:   cmd.IssueDate,
		Currency:    currency,
		CustomerRef: cmd.CustomerRef,
		CreatedBy:   cmd.UserID,
		Lines:       cmd.Lines,
	}, now)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.DocumentRepo().CreateDraft(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Draft created",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(doc.ID),
		logger.Series(doc.Series),
		zap.String("doc_type", string(doc.DocType)),
	)
	return doc, nil
}

// ReplaceLines swaps the lines of a draft. Locked documents are rejected.
func (s *Service) ReplaceLines(ctx context.Context, cmd ReplaceLinesCommand) (*document.Document, error) {
	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.DocumentRepo().FindForUpdate(ctx, cmd.TenantID, cmd.DocumentID)
		if err != nil {
			return err
		}
		if err := doc.ReplaceLines(cmd.Lines, s.clock.Now()); err != nil {
			return err
		}
		return repos.DocumentRepo().SaveDraft(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateHeader changes the customer reference and issue date of a draft
func (s *Service) UpdateHeader(ctx context.Context, tenantID, documentID uuid.UUID, customerRef string, issueDate time.Time) (*document.Document, error) {
	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.DocumentRepo().FindForUpdate(ctx, tenantID, documentID)
		if err != nil {
			return err
		}
		if err := doc.UpdateHeader(customerRef, issueDate, s.clock.Now()); err != nil {
			return err
		}
		return repos.DocumentRepo().SaveDraft(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Cancel abandons a draft. Posted documents are immutable and must be
// corrected with a credit note instead.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*document.Document, error) {
	var doc *document.Document
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		doc, err = repos.DocumentRepo().FindForUpdate(ctx, cmd.TenantID, cmd.DocumentID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := doc.Cancel(cmd.Reason, now); err != nil {
			return err
		}
		if err := repos.DocumentRepo().SaveDraft(ctx, doc); err != nil {
			return err
		}
		audit, err := compliance.NewAuditLog(doc.TenantID, cmd.UserID, AuditDocumentCancelled, AuditEntityTypeDocument, doc.ID, map[string]any{
			"reason": cmd.Reason,
		}, now)
		if err != nil {
			return err
		}
		if err := repos.AuditLogRepo().Append(ctx, audit); err != nil {
			return err
		}
		return s.saveOutbox(ctx, repos, doc, now)
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Draft cancelled",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(doc.ID),
		zap.String("reason", cmd.Reason),
	)
	return doc, nil
}

// CreateCreditNote drafts a credit note mirroring a posted original with
// negated quantities. The original is never modified. With AutoPost the
// credit note is posted right away.
func (s *Service) CreateCreditNote(ctx context.Context, cmd CreditNoteCommand) (*document.Document, error) {
	existing, err := s.docRepo.FindByID(ctx, cmd.OriginalID)
	if err != nil {
		return nil, err
	}
	if !existing.BelongsTo(cmd.TenantID) {
		return nil, shared.ErrForbidden
	}

	series := cmd.Series
	if series == "" {
		series = s.opts.DefaultSeries[string(document.DocTypeCreditNote)]
	}

	var note *document.Document
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.DocumentRepo().FindForUpdate(ctx, cmd.TenantID, cmd.OriginalID)
		if err != nil {
			return err
		}
		if !s.opts.AllowMultipleCorrections {
			count, err := repos.DocumentRepo().CountCorrections(ctx, cmd.TenantID, original.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return shared.NewDomainError(shared.CodeInvalidState, "Document "+original.FullNumber+" has already been corrected")
			}
		}

		now := s.clock.Now()
		note, err = document.NewCreditNote(original, series, cmd.Reason, cmd.UserID, now)
		if err != nil {
			return err
		}
		if err := repos.DocumentRepo().CreateDraft(ctx, note); err != nil {
			return err
		}
		audit, err := compliance.NewAuditLog(cmd.TenantID, cmd.UserID, AuditCreditNoteDrafted, AuditEntityTypeDocument, note.ID, map[string]any{
			"original_id":          original.ID.String(),
			"original_full_number": original.FullNumber,
			"reason":               cmd.Reason,
		}, now)
		if err != nil {
			return err
		}
		if err := repos.AuditLogRepo().Append(ctx, audit); err != nil {
			return err
		}
		return s.saveOutbox(ctx, repos, note, now)
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Credit note drafted",
		logger.TenantID(cmd.TenantID),
		logger.DocumentID(note.ID),
		zap.String("original_id", cmd.OriginalID.String()),
		zap.Bool("auto_post", cmd.AutoPost),
	)

	if !cmd.AutoPost {
		return note, nil
	}
	return s.Post(ctx, PostCommand{TenantID: cmd.TenantID, UserID: cmd.UserID, DocumentID: note.ID})
}

// GetDocument returns a document of a tenant
func (s *Service) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*document.Document, error) {
	return s.docRepo.FindByIDForTenant(ctx, tenantID, documentID)
}

// ListDocuments lists the documents of a tenant
func (s *Service) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter DocumentListFilter) ([]document.Document, int64, error) {
	f := shared.DefaultFilter()
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
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.Series != "" {
		f.Filters["series"] = filter.Series
	}
	if filter.DocType != "" {
		f.Filters["doc_type"] = filter.DocType
	}
	if filter.StartDate != nil {
		f.Filters["start_date"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		f.Filters["end_date"] = *filter.EndDate
	}
	return s.docRepo.FindAllForTenant(ctx, tenantID, f)
}

// AuditTrail returns the audit entries of a document
func (s *Service) AuditTrail(ctx context.Context, tenantID, documentID uuid.UUID) ([]compliance.AuditLog, error) {
	return s.auditRepo.FindByEntity(ctx, tenantID, documentID)
}

// ComplianceEvents returns the compliance events of a document
func (s *Service) ComplianceEvents(ctx context.Context, tenantID, documentID uuid.UUID) ([]compliance.Event, error) {
	return s.eventRepo.FindByDocument(ctx, tenantID, documentID)
}
