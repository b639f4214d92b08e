package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	appcomp "github.com/erp/posting/internal/application/compliance"
	appinv "github.com/erp/posting/internal/application/inventory"
	apppost "github.com/erp/posting/internal/application/posting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/infrastructure/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// exitBrokenChain is returned by verify when the chain does not re-derive
const exitBrokenChain = 2

func main() {
	var (
		configPath string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cmd, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "erpctl: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := logger.WithContext(context.Background(), log)
	svc, err := newServices(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}

	code := execute(ctx, svc, cmd, os.Stdout, os.Stderr)
	if code != 0 {
		_ = log.Sync()
		os.Exit(code)
	}
}

// services are the application services a command may need
type services struct {
	posting    *apppost.Service
	ledger     *appinv.LedgerService
	compliance *appcomp.Service
}

func newServices(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) (*services, error) {
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	eventRepo := persistence.NewGormComplianceEventRepository(db.DB)

	ledger := appinv.NewLedgerService(
		persistence.NewGormInventoryTransactionScope(db.DB),
		persistence.NewGormStockMoveRepository(db.DB),
		persistence.NewGormProductCostRepository(db.DB),
		persistence.NewGormStockOnHandRepository(db.DB),
		persistence.NewGormNegativeStockAlertRepository(db.DB),
		persistence.NewGormVendorBillRepository(db.DB),
	)
	ledger.SetTenantRepository(tenantRepo)
	ledger.SetNegativeStockAlerts(cfg.Posting.NegativeStockAlerts)

	opts := apppost.DefaultOptions()
	for docType, series := range cfg.Posting.DefaultSeries {
		opts.DefaultSeries[docType] = series
	}
	opts.AllowMultipleCorrections = cfg.Posting.AllowMultipleCorrections
	opts.QRBaseURL = cfg.Posting.QRBaseURL
	opts.MaxRetries = cfg.Posting.MaxRetries
	posting := apppost.NewService(
		persistence.NewGormPostingTransactionScope(db.DB),
		documentRepo,
		tenantRepo,
		eventRepo,
		persistence.NewGormAuditLogRepository(db.DB),
		ledger,
		opts,
	)

	exportStorage, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	compliance := appcomp.NewService(
		documentRepo,
		tenantRepo,
		eventRepo,
		persistence.NewGormExportBatchRepository(db.DB),
		exportStorage,
	)
	compliance.SetKeyPrefix(cfg.Export.KeyPrefix)

	return &services{posting: posting, ledger: ledger, compliance: compliance}, nil
}

// command is a parsed subcommand ready to run
type command struct {
	name      string
	tenantID  uuid.UUID
	userID    uuid.UUID
	targetID  uuid.UUID // document or product
	series    string
	from, to  time.Time
	operation func(ctx context.Context, svc *services, c *command) (any, error)
}

func parseCommand(args []string) (*command, error) {
	name, rest := args[0], args[1:]
	c := &command{name: name}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var tenant, user, target, from, to string
	fs.StringVar(&tenant, "tenant", "", "tenant id")

	switch name {
	case "post":
		fs.StringVar(&user, "user", "", "operator user id")
		fs.StringVar(&target, "document", "", "draft document id")
		c.operation = runPost
	case "export":
		fs.StringVar(&user, "user", "", "operator user id")
		fs.StringVar(&from, "from", "", "first day of the period (YYYY-MM-DD)")
		fs.StringVar(&to, "to", "", "last day of the period (YYYY-MM-DD)")
		c.operation = runExport
	case "verify":
		fs.StringVar(&c.series, "series", "", "series to verify")
		c.operation = runVerify
	case "recalc-cost":
		fs.StringVar(&target, "product", "", "product id")
		c.operation = runRecalcCost
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
	if err := fs.Parse(rest); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var err error
	if c.tenantID, err = requireUUID("tenant", tenant); err != nil {
		return nil, err
	}
	if user != "" {
		if c.userID, err = uuid.Parse(user); err != nil {
			return nil, fmt.Errorf("invalid -user: %w", err)
		}
	}

	switch name {
	case "post":
		c.targetID, err = requireUUID("document", target)
	case "recalc-cost":
		c.targetID, err = requireUUID("product", target)
	case "verify":
		if c.series == "" {
			err = errors.New("-series is required")
		}
	case "export":
		c.from, c.to, err = parsePeriod(from, to)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func requireUUID(flagName, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("-%s is required", flagName)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid -%s: %w", flagName, err)
	}
	return id, nil
}

// parsePeriod turns inclusive calendar days into the [from, to) range the
// export expects. An empty to exports the single day from.
func parsePeriod(from, to string) (time.Time, time.Time, error) {
	if from == "" {
		return time.Time{}, time.Time{}, errors.New("-from is required")
	}
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from: %w", err)
	}
	end := start
	if to != "" {
		if end, err = time.Parse(time.DateOnly, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -to: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("-to must not be before -from")
	}
	return start, end.AddDate(0, 0, 1), nil
}

// execute runs the command, prints its result as JSON and returns the exit code
func execute(ctx context.Context, svc *services, c *command, stdout, stderr io.Writer) int {
	result, err := c.operation(ctx, svc, c)
	if err != nil {
		fmt.Fprintf(stderr, "erpctl %s: %s\n", c.name, errorText(err))
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "erpctl %s: %v\n", c.name, err)
		return 1
	}
	if v, ok := result.(verifyResult); ok && !v.Valid {
		return exitBrokenChain
	}
	return 0
}

// errorText prefixes domain errors with their code
func errorText(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code + ": " + domainErr.Message
	}
	return err.Error()
}

func runPost(ctx context.Context, svc *services, c *command) (any, error) {
	doc, err := svc.posting.Post(ctx, apppost.PostCommand{
		TenantID:   c.tenantID,
		UserID:     c.userID,
		DocumentID: c.targetID,
	})
	if err != nil {
		return nil, err
	}
	return apppost.ToDocumentResponse(doc), nil
}

func runExport(ctx context.Context, svc *services, c *command) (any, error) {
	return svc.compliance.Export(ctx, appcomp.ExportCommand{
		TenantID: c.tenantID,
		UserID:   c.userID,
		From:     c.from,
		To:       c.to,
	})
}

type verifyResult struct {
	Valid  bool `json:"valid"`
	Report any  `json:"report"`
}

func runVerify(ctx context.Context, svc *services, c *command) (any, error) {
	report, err := svc.compliance.VerifyChain(ctx, c.tenantID, c.series)
	if err != nil {
		return nil, err
	}
	return verifyResult{Valid: report.Valid(), Report: report}, nil
}

func runRecalcCost(ctx context.Context, svc *services, c *command) (any, error) {
	return svc.ledger.RecalculateProductCost(ctx, c.tenantID, c.targetID)
}

func printUsage() {
	fmt.Println(`Posting operator tool

Usage:
  erpctl [flags] <command> [arguments]

Commands:
  post -tenant <id> -document <id> [-user <id>]
                     Post a draft document
  export -tenant <id> -from <YYYY-MM-DD> [-to <YYYY-MM-DD>] [-user <id>]
                     Export the registry of posted documents of a period
  verify -tenant <id> -series <series>
                     Re-derive the hash chain of a series (exit 2 when broken)
  recalc-cost -tenant <id> -product <id>
                     Rebuild the average cost of a product from its ledger

Flags:
  -config string     Path to config file (default: ./config.toml)
  -log-level string  Log level: debug, info, warn, error (default: warn)`)
}
