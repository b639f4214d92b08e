package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// schema is the subset of *migration.Migrator the commands drive
type schema interface {
	Up() error
	Down() error
	Steps(n int) error
	GoTo(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
	Pending() ([]migration.Migration, error)
}

type action func(m schema, args []string, out io.Writer, log *zap.Logger) error

var actions = map[string]action{
	"up": func(m schema, _ []string, _ io.Writer, _ *zap.Logger) error {
		return m.Up()
	},
	"down": func(m schema, args []string, _ io.Writer, _ *zap.Logger) error {
		if !hasConfirm(args) {
			return errors.New("rolling back every migration drops the posted registry, rerun with -confirm")
		}
		return m.Down()
	},
	"step": func(m schema, args []string, _ io.Writer, _ *zap.Logger) error {
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"goto": func(m schema, args []string, _ io.Writer, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative: %d", v)
		}
		return m.GoTo(uint(v))
	},
	"force": func(m schema, args []string, _ io.Writer, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"version": func(m schema, _ []string, out io.Writer, _ *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if v == 0 {
			fmt.Fprintln(out, "no migrations applied")
			return nil
		}
		fmt.Fprintf(out, "%06d dirty=%t\n", v, dirty)
		return nil
	},
	"status": func(m schema, _ []string, out io.Writer, _ *zap.Logger) error {
		pending, err := m.Pending()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(out, "database is up to date")
			return nil
		}
		for _, p := range pending {
			fmt.Fprintf(out, "  pending  %06d  %s\n", p.Version, p.Name)
		}
		return nil
	},
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./config.toml)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage(os.Stderr)
		os.Exit(2)
	}
	command, rest := args[0], args[1:]

	if command == "list" {
		if err := listEmbedded(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "migrate list: %v\n", err)
			os.Exit(1)
		}
		return
	}
	act, ok := actions[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "migrate: unknown command %q\n\n", command)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(*configPath, command, act, rest, log); err != nil {
		log.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath, command string, act action, args []string, log *zap.Logger) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, log)
	if err != nil {
		return err
	}
	defer m.Close()

	log.Info("Running migration command",
		zap.String("command", command),
		zap.String("database", cfg.Database.DBName),
	)
	return act(m, args, os.Stdout, log)
}

func listEmbedded(out io.Writer) error {
	all, err := migration.List()
	if err != nil {
		return err
	}
	for _, m := range all {
		fmt.Fprintf(out, "  %06d  %s\n", m.Version, m.Name)
	}
	return nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}

func hasConfirm(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Posting database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                 Apply all pending migrations
  down -confirm      Roll back all migrations
  step <n>           Apply n migrations (positive=up, negative=down)
  goto <version>     Migrate to a specific version
  version            Show current migration version
  status             List migrations not yet applied
  force <version>    Force set migration version (clears a dirty state)
  list               List embedded migrations

Flags:
  -config string     Path to config file (default: ./config.toml)
  -log-level string  Log level: debug, info, warn, error (default: info)

Environment Variables:
  ERP_DATABASE_HOST, ERP_DATABASE_PORT, ERP_DATABASE_USER,
  ERP_DATABASE_PASSWORD, ERP_DATABASE_DBNAME, ERP_DATABASE_SSLMODE`)
}
