package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcomp "github.com/erp/posting/internal/application/compliance"
	appinv "github.com/erp/posting/internal/application/inventory"
	apppost "github.com/erp/posting/internal/application/posting"
	"github.com/erp/posting/internal/infrastructure/cache"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/infrastructure/scheduler"
	"github.com/erp/posting/internal/infrastructure/storage"
	"github.com/erp/posting/internal/infrastructure/telemetry"
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/erp/posting/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers are set up first so the bridged logger and the gin
	// middleware pick up the global providers.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log provider", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, cfg.Telemetry.ServiceName)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ERP posting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, persistence.WithLogLevel(logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	postingMetrics, err := telemetry.NewPostingMetrics(meterProvider.Meter("erp-posting"))
	if err != nil {
		log.Fatal("Failed to create posting metrics", zap.Error(err))
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	eventRepo := persistence.NewGormComplianceEventRepository(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)
	exportRepo := persistence.NewGormExportBatchRepository(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)

	// Application services
	ledger := appinv.NewLedgerService(
		persistence.NewGormInventoryTransactionScope(db.DB),
		persistence.NewGormStockMoveRepository(db.DB),
		persistence.NewGormProductCostRepository(db.DB),
		persistence.NewGormStockOnHandRepository(db.DB),
		persistence.NewGormNegativeStockAlertRepository(db.DB),
		persistence.NewGormVendorBillRepository(db.DB),
	)
	ledger.SetTenantRepository(tenantRepo)
	ledger.SetMetrics(postingMetrics)
	ledger.SetNegativeStockAlerts(cfg.Posting.NegativeStockAlerts)

	postingOpts := apppost.DefaultOptions()
	for docType, series := range cfg.Posting.DefaultSeries {
		postingOpts.DefaultSeries[docType] = series
	}
	postingOpts.AllowMultipleCorrections = cfg.Posting.AllowMultipleCorrections
	postingOpts.QRBaseURL = cfg.Posting.QRBaseURL
	postingOpts.MaxRetries = cfg.Posting.MaxRetries
	postingService := apppost.NewService(
		persistence.NewGormPostingTransactionScope(db.DB),
		documentRepo,
		tenantRepo,
		eventRepo,
		auditRepo,
		ledger,
		postingOpts,
	)
	postingService.SetMetrics(postingMetrics)

	exportStorage, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize export storage", zap.Error(err))
	}
	complianceService := appcomp.NewService(documentRepo, tenantRepo, eventRepo, exportRepo, exportStorage)
	complianceService.SetKeyPrefix(cfg.Export.KeyPrefix)

	// Idempotency keys for HTTP posting and outbox delivery
	keyStore, err := cache.NewStore(ctx, cfg.Redis, cfg.App.Env != "production", log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := keyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Outbox relay feeding the in-process event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewDocumentNotifier(log),
		keyStore,
		cfg.Event.IdempotencyTTL,
		log,
	))
	var relay *event.Relay
	if cfg.Event.ProcessorEnabled {
		relay = event.NewRelay(outboxRepo, eventBus, event.NewDocumentEventSerializer(), event.RelayConfig{
			BatchSize:    cfg.Event.BatchSize,
			PollInterval: cfg.Event.PollInterval,
		}, log)
		relay.Start(ctx)
		log.Info("Outbox relay started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
		)
	}

	// Daily chain verification
	var (
		verifyScheduler *scheduler.Scheduler
		verifyTrigger   *scheduler.VerificationTrigger
	)
	if cfg.Scheduler.Enabled {
		verifyScheduler, verifyTrigger, err = startVerification(ctx, cfg.Scheduler, complianceService, postingMetrics, tenantRepo, documentRepo, log)
		if err != nil {
			log.Fatal("Failed to start chain verification scheduler", zap.Error(err))
		}
	}

	engine := newEngine(cfg, log, meterProvider, tenantRepo)
	router.NewRouter(engine,
		router.WithAPIMiddleware(middleware.TenantMiddlewareWithConfig(middleware.TenantMiddlewareConfig{
			SkipPaths:   middleware.DefaultTenantConfig().SkipPaths,
			RequireUser: true,
			Lookup:      tenantRepo,
		})),
		router.WithSystemHandler(handler.NewSystemHandler(version, map[string]handler.HealthChecker{
			"database": db,
		})),
	).Register(
		router.DocumentRoutes(handler.NewDocumentHandler(postingService, keyStore, cfg.Event.IdempotencyTTL)),
		router.InventoryRoutes(handler.NewInventoryHandler(ledger)),
		router.ComplianceRoutes(handler.NewComplianceHandler(complianceService)),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if verifyTrigger != nil {
		verifyTrigger.Stop()
	}
	if verifyScheduler != nil {
		if err := verifyScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if relay != nil {
		if err := relay.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox relay did not stop cleanly", zap.Error(err))
		}
	}
	_ = logProvider.Shutdown(shutdownCtx)
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// newEngine builds the gin engine with the global middleware chain
func newEngine(cfg *config.Config, log *zap.Logger, meters *telemetry.MeterProvider, tenants middleware.TenantLookup) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	httpMetrics, err := middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		Meter:   meters.Meter("erp-posting/http"),
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	engine.Use(
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		logger.GinMiddleware(log),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)
	return engine
}

// startVerification starts the worker pool and the daily trigger that
// enqueues one verification job per chain
func startVerification(
	ctx context.Context,
	cfg config.SchedulerConfig,
	verifier scheduler.ChainVerifier,
	metrics scheduler.ChainFailureRecorder,
	tenants scheduler.TenantLister,
	series scheduler.SeriesLister,
	log *zap.Logger,
) (*scheduler.Scheduler, *scheduler.VerificationTrigger, error) {
	hour, minute, err := scheduler.ParseCronSchedule(cfg.Cron)
	if err != nil {
		return nil, nil, err
	}

	schedCfg := scheduler.DefaultSchedulerConfig()
	if cfg.Workers > 0 {
		schedCfg.MaxConcurrentJobs = cfg.Workers
	}
	sched, err := scheduler.NewScheduler(schedCfg, scheduler.NewVerificationExecutor(verifier, metrics, log), log)
	if err != nil {
		return nil, nil, err
	}
	if err := sched.Start(ctx); err != nil {
		return nil, nil, err
	}

	triggerCfg := scheduler.DefaultTriggerConfig()
	triggerCfg.Hour, triggerCfg.Minute = hour, minute
	trigger := scheduler.NewVerificationTrigger(triggerCfg, sched, tenants, series, log)
	trigger.Start(ctx)

	log.Info("Chain verification scheduled",
		zap.Int("hour", hour),
		zap.Int("minute", minute),
		zap.Int("workers", schedCfg.MaxConcurrentJobs),
	)
	return sched, trigger, nil
}
