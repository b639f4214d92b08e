package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStorage stores generated registry files
type ObjectStorage interface {
	// Upload writes data under storageKey
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	// GenerateDownloadURL returns a time-limited URL to read storageKey
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// Service verifies hash chains and exports the posted document registry
type Service struct {
	docRepo    document.DocumentRepository
	tenantRepo identity.TenantRepository
	eventRepo  compliance.EventRepository
	exportRepo compliance.ExportBatchRepository
	storage    ObjectStorage
	clock      shared.Clock
	keyPrefix  string
	urlExpiry  time.Duration
}

// NewService creates a new compliance Service
func NewService(
	docRepo document.DocumentRepository,
	tenantRepo identity.TenantRepository,
	eventRepo compliance.EventRepository,
	exportRepo compliance.ExportBatchRepository,
	storage ObjectStorage,
) *Service {
	return &Service{
		docRepo:    docRepo,
		tenantRepo: tenantRepo,
		eventRepo:  eventRepo,
		exportRepo: exportRepo,
		storage:    storage,
		clock:      shared.SystemClock{},
		keyPrefix:  "registry",
		urlExpiry:  15 * time.Minute,
	}
}

// SetClock replaces the wall clock
func (s *Service) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetKeyPrefix sets the storage key prefix of exported files
func (s *Service) SetKeyPrefix(prefix string) {
	if prefix != "" {
		s.keyPrefix = prefix
	}
}

// VerifyChain re-derives every hash of a (tenant, series) chain and records
// the outcome as a compliance event. A broken chain is reported, not returned
// as an error.
func (s *Service) VerifyChain(ctx context.Context, tenantID uuid.UUID, series string) (compliance.ChainReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "compliance.verify_chain",
		telemetry.AttrTenantID.String(tenantID.String()),
		telemetry.AttrSeries.String(series),
	)
	defer span.End()

	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return compliance.ChainReport{}, err
	}
	docs, err := s.docRepo.FindPostedInChain(ctx, tenantID, series)
	if err != nil {
		return compliance.ChainReport{}, err
	}

	report := compliance.VerifyChain(tenant.TaxID, tenantID, series, docs)

	eventType := compliance.EventChainVerified
	var documentID *uuid.UUID
	if !report.Valid() {
		eventType = compliance.EventChainBroken
		id := report.Break.DocumentID
		documentID = &id
		logger.L(ctx).Error("Hash chain broken",
			logger.TenantID(tenantID),
			logger.Series(series),
			logger.DocumentID(id),
			zap.String("full_number", report.Break.FullNumber),
			zap.String("reason", report.Break.Reason),
		)
	} else {
		logger.L(ctx).Info("Hash chain verified",
			logger.TenantID(tenantID),
			logger.Series(series),
			zap.Int("checked", report.Checked),
		)
	}

	event, err := compliance.NewEvent(tenantID, documentID, eventType, report, s.clock.Now())
	if err != nil {
		return report, err
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return report, err
	}
	return report, nil
}

// Export writes the registry of documents posted in [From, To) to object
// storage and records an append-only export batch
func (s *Service) Export(ctx context.Context, cmd ExportCommand) (*ExportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "compliance.export",
		telemetry.AttrTenantID.String(cmd.TenantID.String()),
	)
	defer span.End()

	if !cmd.To.After(cmd.From) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Export period end must be after its start")
	}
	tenant, err := s.tenantRepo.FindByID(ctx, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docRepo.FindPostedBetween(ctx, cmd.TenantID, cmd.From, cmd.To)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	registry := Registry{
		TenantID:    cmd.TenantID,
		IssuerTaxID: tenant.TaxID,
		PeriodFrom:  cmd.From,
		PeriodTo:    cmd.To,
		GeneratedAt: now,
		Records:     make([]RegistryRecord, 0, len(docs)),
	}
	for i := range docs {
		registry.Records = append(registry.Records, NewRegistryRecord(&docs[i]))
	}
	data, err := encodeRegistry(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}

	batch := &compliance.ExportBatch{
		ID:          uuid.New(),
		TenantID:    cmd.TenantID,
		PeriodFrom:  cmd.From,
		PeriodTo:    cmd.To,
		RecordCount: len(registry.Records),
		FileHash:    compliance.HashBytes(data),
		GeneratedAt: now,
	}
	batch.StorageKey = s.storageKey(batch)
	if cmd.UserID != uuid.Nil {
		userID := cmd.UserID
		batch.GeneratedBy = &userID
	}

	if err := s.storage.Upload(ctx, batch.StorageKey, data, "application/json"); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.exportRepo.Append(ctx, batch); err != nil {
		return nil, err
	}
	event, err := compliance.NewEvent(cmd.TenantID, nil, compliance.EventRegistryExported, map[string]any{
		"batch_id":     batch.ID,
		"record_count": batch.RecordCount,
		"file_hash":    batch.FileHash,
		"storage_key":  batch.StorageKey,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return nil, err
	}

	result := &ExportResult{
		BatchID:     batch.ID,
		RecordCount: batch.RecordCount,
		FileHash:    batch.FileHash,
		StorageKey:  batch.StorageKey,
		GeneratedAt: now,
	}
	if url, _, err := s.storage.GenerateDownloadURL(ctx, batch.StorageKey, s.urlExpiry); err == nil {
		result.DownloadURL = url
	} else {
		logger.L(ctx).Warn("Failed to generate export download URL", zap.Error(err))
	}

	logger.L(ctx).Info("Registry exported",
		logger.TenantID(cmd.TenantID),
		zap.Int("records", batch.RecordCount),
		zap.String("storage_key", batch.StorageKey),
		logger.Hash(batch.FileHash),
	)
	return result, nil
}

// ListExports returns the export batches of a tenant, newest first
func (s *Service) ListExports(ctx context.Context, tenantID uuid.UUID) ([]ExportBatchResponse, error) {
	batches, err := s.exportRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ExportBatchResponse, len(batches))
	for i := range batches {
		out[i] = ToExportBatchResponse(&batches[i])
	}
	return out, nil
}

func (s *Service) storageKey(b *compliance.ExportBatch) string {
	return fmt.Sprintf("%s/%s/%s_%s_%s.json",
		s.keyPrefix,
		b.TenantID,
		b.PeriodFrom.UTC().Format("20060102"),
		b.PeriodTo.UTC().Format("20060102"),
		b.ID,
	)
}

// encodeRegistry renders the registry without HTML escaping so that the
// embedded canonical payloads keep their exact characters
func encodeRegistry(r Registry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
