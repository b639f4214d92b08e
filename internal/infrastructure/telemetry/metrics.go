package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration
	ServiceName       string
	Environment       string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider, nil while metrics are off.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider starts a periodic OTLP reader and registers the provider
// globally. Disabled metrics leave the otel no-op in place.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	if !cfg.Enabled {
		logger.Info("Metrics disabled")
		return &MeterProvider{}, nil
	}
	if cfg.CollectorEndpoint == "" {
		return nil, errors.New("telemetry: collector endpoint is required when metrics are enabled")
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName, attribute.String("deployment.environment.name", cfg.Environment))
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)
	logger.Info("Metrics enabled",
		zap.String("endpoint", cfg.CollectorEndpoint),
		zap.Duration("interval", interval),
	)
	return &MeterProvider{provider: provider}, nil
}

// Shutdown exports the last collection and stops the reader.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: meter shutdown: %w", err)
	}
	return nil
}

// Meter returns a named meter, the global one while metrics are off.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// Counter is a monotonic int64 instrument.
type Counter struct {
	counter metric.Int64Counter
}

func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("telemetry: counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram records latencies in seconds.
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram registers a float64 histogram; without boundaries the SDK
// default buckets apply.
func NewHistogram(meter metric.Meter, name, description, unit string, boundaries ...float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	h, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Attribute keys shared by spans and instruments
var (
	AttrTenantID   = attribute.Key("tenant_id")
	AttrDocType    = attribute.Key("doc_type")
	AttrSeries     = attribute.Key("series")
	AttrOutcome    = attribute.Key("outcome")
	AttrDocumentID = attribute.Key("document_id")
	AttrNumber     = attribute.Key("number")
	AttrProductID  = attribute.Key("product_id")
	AttrMoveType   = attribute.Key("move_type")
)

// DurationBuckets spans 5ms to 5s, the range of a posting transaction
// including lock waits.
var DurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
