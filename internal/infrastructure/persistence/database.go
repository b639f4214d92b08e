package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Database is the shared PostgreSQL handle of the posting service
type Database struct {
	DB *gorm.DB
}

// Option adjusts the gorm configuration before the connection opens
type Option func(*gorm.Config)

// WithLogLevel overrides the SQL log level (default Warn)
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(c *gorm.Config) {
		if gl, ok := c.Logger.(*logger.GormLogger); ok {
			c.Logger = gl.LogMode(level)
		}
	}
}

// NewDatabase connects, sizes the pool and pings. The DSN carries
// lock_timeout, so a blocked series or cost row lock fails with 55P03 and
// surfaces as a retryable conflict.
func NewDatabase(cfg *config.DatabaseConfig, log *zap.Logger, opts ...Option) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 logger.NewGormLogger(log, gormlogger.Warn, logger.WithSlowThreshold(slowQueryThreshold)),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	d := &Database{DB: db}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database: ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	log.Info("Database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Duration("lock_timeout", cfg.LockTimeout),
	)
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database: connection pool: %w", err)
	}
	return pool, nil
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping backs the readiness check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// Stats reports connection pool usage
func (d *Database) Stats() (sql.DBStats, error) {
	pool, err := d.pool()
	if err != nil {
		return sql.DBStats{}, err
	}
	return pool.Stats(), nil
}
