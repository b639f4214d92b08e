package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewTracerProvider(context.Background(), Config{Enabled: true}, zap.NewNop())
	assert.ErrorContains(t, err, "collector endpoint is required")
}

func TestNewResource_DropsEmptyAttributes(t *testing.T) {
	res, err := newResource("erp-posting",
		attribute.String("deployment.environment.name", ""),
		attribute.String("service.version", "1.2.0"),
	)
	require.NoError(t, err)

	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "erp-posting", got["service.name"])
	assert.Equal(t, "1.2.0", got["service.version"])
	assert.NotContains(t, got, attribute.Key("deployment.environment.name"))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestStartServiceSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartServiceSpan(context.Background(), "posting.post",
		AttrSeries.String("F"), AttrNumber.Int64(3))
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "posting.post", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Attributes(), 2)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestPostingMetrics(t *testing.T) {
	_, err := NewPostingMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	pm, err := NewPostingMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	pm.RecordPosted(ctx, tenantID, "invoice", 20*time.Millisecond)
	pm.RecordPosted(ctx, tenantID, "invoice", 30*time.Millisecond)
	pm.RecordFailure(ctx, tenantID, "CONCURRENCY_CONFLICT", time.Millisecond)
	pm.RecordNegativeStock(ctx, tenantID)
	pm.RecordChainFailure(ctx, tenantID, "F")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["erp_documents_posted_total"])
	assert.Equal(t, int64(1), sums["erp_posting_failures_total"])
	assert.Equal(t, int64(1), sums["erp_negative_stock_alerts_total"])
	assert.Equal(t, int64(1), sums["erp_chain_encoding_failures_total"])
}

func TestPostingMetrics_NilReceiver(t *testing.T) {
	var pm *PostingMetrics
	assert.NotPanics(t, func() {
		pm.RecordPosted(context.Background(), uuid.New(), "ticket", time.Second)
		pm.RecordNegativeStock(context.Background(), uuid.New())
	})
}

func TestLoggerProvider_BridgeDisabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	bridged := lp.Bridge(base, "erp-posting")
	bridged.Info("still local")

	assert.Same(t, base, bridged)
	assert.Equal(t, 1, recorded.Len())
	assert.NoError(t, lp.Shutdown(context.Background()))
}
