// Package config loads the posting service settings from config.toml and
// ERP_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Event     EventConfig     `mapstructure:"event"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Posting   PostingConfig   `mapstructure:"posting"`
	Export    ExportConfig    `mapstructure:"export"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// LockTimeout bounds waits on series counter rows
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// RedisConfig backs the idempotency store; disabled falls back to memory
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// EventConfig drives the outbox relay
type EventConfig struct {
	ProcessorEnabled bool          `mapstructure:"processor_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`
	DBTraceEnabled    bool    `mapstructure:"db_trace_enabled"`
	// DBLogFullSQL puts bound values into spans; refused in production
	DBLogFullSQL   bool `mapstructure:"db_log_full_sql"`
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	LogsEnabled    bool `mapstructure:"logs_enabled"`
}

// StorageConfig selects where registry exports are written. S3Endpoint is
// only set for MinIO and other S3-compatible stores.
type StorageConfig struct {
	Type        string `mapstructure:"type"`
	LocalPath   string `mapstructure:"local_path"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3PathStyle bool   `mapstructure:"s3_path_style"`
}

type PostingConfig struct {
	// DefaultSeries maps a document type to the series used when a draft omits one
	DefaultSeries            map[string]string `mapstructure:"default_series"`
	AllowMultipleCorrections bool              `mapstructure:"allow_multiple_corrections"`
	NegativeStockAlerts      bool              `mapstructure:"negative_stock_alerts"`
	QRBaseURL                string            `mapstructure:"qr_base_url"`
	MaxRetries               int               `mapstructure:"max_retries"`
}

func (p *PostingConfig) SeriesFor(docType string) string {
	return p.DefaultSeries[docType]
}

type ExportConfig struct {
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SchedulerConfig holds the daily chain verification schedule
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"` // "M H * * *"
	Workers int    `mapstructure:"workers"`
}

var defaultSeries = map[string]string{"ticket": "T", "invoice": "F", "credit_note": "R"}

// defaults lists every key so AutomaticEnv can override it during Unmarshal
var defaults = map[string]any{
	"app.name": "erp-posting",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "erp",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,
	"database.lock_timeout":       5 * time.Second,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.processor_enabled": false,
	"event.batch_size":        100,
	"event.poll_interval":     5 * time.Second,
	"event.max_retries":       5,
	"event.idempotency_ttl":   24 * time.Hour,

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    10 << 20,
	"http.trusted_proxies":  []string{},

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.sampling_ratio":     1.0,
	"telemetry.service_name":       "erp-posting",
	"telemetry.insecure":           false,
	"telemetry.db_trace_enabled":   false,
	"telemetry.db_log_full_sql":    false,
	"telemetry.metrics_enabled":    false,
	"telemetry.logs_enabled":       false,

	"storage.type":          "local",
	"storage.local_path":    "./exports",
	"storage.s3_bucket":     "",
	"storage.s3_region":     "us-east-1",
	"storage.s3_endpoint":   "",
	"storage.s3_access_key": "",
	"storage.s3_secret_key": "",
	"storage.s3_path_style": false,

	"posting.allow_multiple_corrections": false,
	"posting.negative_stock_alerts":      true,
	"posting.qr_base_url":                "",
	"posting.max_retries":                3,

	"export.key_prefix": "registry",

	"scheduler.enabled": false,
	"scheduler.cron":    "0 3 * * *",
	"scheduler.workers": 2,
}

// Load reads ./config.toml or /app/config.toml when present. ERP_ variables
// (ERP_DATABASE_PASSWORD for database.password) win over the file, which
// wins over the built-in defaults.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit file, which must exist
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Posting.DefaultSeries == nil {
		cfg.Posting.DefaultSeries = make(map[string]string, len(defaultSeries))
	}
	for docType, series := range defaultSeries {
		if cfg.Posting.DefaultSeries[docType] == "" {
			cfg.Posting.DefaultSeries[docType] = series
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		fail("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		fail("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			fail("storage.s3_bucket is required when storage.type is s3")
		}
	default:
		fail("storage.type must be local or s3, got %q", c.Storage.Type)
	}

	if c.Posting.MaxRetries < 1 {
		fail("posting.max_retries must be at least 1")
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", r)
	}

	if c.App.Env == "production" {
		if db.Password == "" {
			fail("database.password is required in production")
		}
		if db.SSLMode == "disable" {
			fail("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			fail("telemetry.db_log_full_sql must be false in production")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN renders a postgres URL with user info escaped. A positive LockTimeout
// becomes the session lock_timeout.
func (d *DatabaseConfig) DSN() string {
	q := url.Values{"sslmode": {d.SSLMode}}
	if d.LockTimeout > 0 {
		q.Set("lock_timeout", fmt.Sprintf("%dms", d.LockTimeout.Milliseconds()))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}
