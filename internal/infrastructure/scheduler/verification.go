package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChainVerifier re-derives the hashes of a chain
type ChainVerifier interface {
	VerifyChain(ctx context.Context, tenantID uuid.UUID, series string) (compliance.ChainReport, error)
}

// ChainFailureRecorder counts broken chains
type ChainFailureRecorder interface {
	RecordChainFailure(ctx context.Context, tenantID uuid.UUID, series string)
}

// TenantLister lists the tenants to verify
type TenantLister interface {
	FindActive(ctx context.Context) ([]identity.Tenant, error)
}

// SeriesLister lists the chains of a tenant
type SeriesLister interface {
	FindPostedSeries(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

// VerificationExecutor runs chain verification jobs. A broken chain is an
// outcome, not a job failure: it is recorded by the verifier and counted.
type VerificationExecutor struct {
	verifier ChainVerifier
	metrics  ChainFailureRecorder
	logger   *zap.Logger
}

// NewVerificationExecutor creates a VerificationExecutor; metrics may be nil
func NewVerificationExecutor(verifier ChainVerifier, metrics ChainFailureRecorder, logger *zap.Logger) *VerificationExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationExecutor{verifier: verifier, metrics: metrics, logger: logger}
}

// Execute verifies the chain named by the job
func (e *VerificationExecutor) Execute(ctx context.Context, job *Job) error {
	report, err := e.verifier.VerifyChain(ctx, job.TenantID, job.Series)
	if err != nil {
		return fmt.Errorf("verify chain %s: %w", job.Series, err)
	}
	if !report.Valid() {
		if e.metrics != nil {
			e.metrics.RecordChainFailure(ctx, job.TenantID, job.Series)
		}
		e.logger.Error("Scheduled verification found a broken chain",
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("series", job.Series),
			zap.String("full_number", report.Break.FullNumber),
		)
	}
	return nil
}

// TriggerConfig holds the daily trigger schedule
type TriggerConfig struct {
	Hour          int
	Minute        int
	CheckInterval time.Duration
}

// DefaultTriggerConfig runs verification daily at 03:00
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{Hour: 3, Minute: 0, CheckInterval: time.Minute}
}

// ParseCronSchedule reads the minute and hour fields of a "M H * * *"
// expression. An empty expression keeps the defaults.
func ParseCronSchedule(expr string) (hour, minute int, err error) {
	def := DefaultTriggerConfig()
	hour, minute = def.Hour, def.Minute

	parts := strings.Fields(expr)
	if len(parts) < 2 {
		return hour, minute, nil
	}
	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return def.Hour, def.Minute, fmt.Errorf("invalid minute %q: %w", parts[0], err)
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return def.Hour, def.Minute, fmt.Errorf("invalid hour %q: %w", parts[1], err)
		}
	}
	if minute < 0 || minute > 59 {
		return def.Hour, def.Minute, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return def.Hour, def.Minute, fmt.Errorf("hour must be 0-23, got %d", hour)
	}
	return hour, minute, nil
}

// VerificationTrigger submits one job per (tenant, series) chain once a day
type VerificationTrigger struct {
	config    TriggerConfig
	scheduler *Scheduler
	tenants   TenantLister
	series    SeriesLister
	logger    *zap.Logger
	now       func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewVerificationTrigger creates a VerificationTrigger
func NewVerificationTrigger(config TriggerConfig, scheduler *Scheduler, tenants TenantLister, series SeriesLister, logger *zap.Logger) *VerificationTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationTrigger{
		config:    config,
		scheduler: scheduler,
		tenants:   tenants,
		series:    series,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins checking the schedule
func (t *VerificationTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Verification trigger started",
		zap.Int("hour", t.config.Hour),
		zap.Int("minute", t.config.Minute),
	)
}

// Stop halts the trigger loop
func (t *VerificationTrigger) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *VerificationTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.due(t.now()) {
				if _, err := t.TriggerAll(ctx); err != nil {
					t.logger.Error("Failed to schedule chain verification", zap.Error(err))
				}
			}
		}
	}
}

// due reports whether now is the scheduled minute of a day not yet run
func (t *VerificationTrigger) due(now time.Time) bool {
	day := now.Format("2006-01-02")
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastRunDate == day || now.Hour() != t.config.Hour || now.Minute() != t.config.Minute {
		return false
	}
	t.lastRunDate = day
	return true
}

// TriggerAll submits a job for every posted chain of every active tenant
// and returns how many were queued
func (t *VerificationTrigger) TriggerAll(ctx context.Context) (int, error) {
	tenants, err := t.tenants.FindActive(ctx)
	if err != nil {
		return 0, err
	}
	submitted := 0
	for i := range tenants {
		tenantID := tenants[i].ID
		seriesList, err := t.series.FindPostedSeries(ctx, tenantID)
		if err != nil {
			t.logger.Error("Failed to list series",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for _, series := range seriesList {
			if err := t.scheduler.SubmitJob(NewJob(tenantID, series, t.scheduler.config.RetryAttempts)); err != nil {
				return submitted, err
			}
			submitted++
		}
	}
	t.logger.Info("Chain verification scheduled",
		zap.Int("tenants", len(tenants)),
		zap.Int("jobs", submitted),
	)
	return submitted, nil
}
