package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// PostingMetrics counts posting outcomes, stock alerts and chain failures.
// A nil *PostingMetrics is valid and records nothing.
type PostingMetrics struct {
	documentsPosted     *Counter
	postingFailures     *Counter
	postingDuration     *Histogram
	negativeStockAlerts *Counter
	chainFailures       *Counter
}

// NewPostingMetrics registers the posting instruments on meter.
func NewPostingMetrics(meter metric.Meter) (*PostingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		pm  PostingMetrics
		err error
	)
	if pm.documentsPosted, err = NewCounter(meter, "erp_documents_posted_total", "Documents posted", "{document}"); err != nil {
		return nil, err
	}
	if pm.postingFailures, err = NewCounter(meter, "erp_posting_failures_total", "Posting attempts that failed", "{attempt}"); err != nil {
		return nil, err
	}
	if pm.postingDuration, err = NewHistogram(meter, "erp_posting_duration_seconds", "Posting transaction latency", "s", DurationBuckets...); err != nil {
		return nil, err
	}
	if pm.negativeStockAlerts, err = NewCounter(meter, "erp_negative_stock_alerts_total", "Stock moves that left on-hand below zero", "{alert}"); err != nil {
		return nil, err
	}
	if pm.chainFailures, err = NewCounter(meter, "erp_chain_encoding_failures_total", "Documents whose canonical form could not be hashed", "{document}"); err != nil {
		return nil, err
	}
	return &pm, nil
}

// RecordPosted records a successful post and its latency.
func (m *PostingMetrics) RecordPosted(ctx context.Context, tenantID uuid.UUID, docType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.documentsPosted.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrDocType.String(docType))
	m.postingDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("posted"))
}

// RecordFailure records a failed posting attempt with the error code as outcome.
func (m *PostingMetrics) RecordFailure(ctx context.Context, tenantID uuid.UUID, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.postingFailures.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOutcome.String(code))
	m.postingDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("failed"))
}

// RecordNegativeStock records a negative-stock alert.
func (m *PostingMetrics) RecordNegativeStock(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.negativeStockAlerts.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordChainFailure records a chain encoding failure for a series.
func (m *PostingMetrics) RecordChainFailure(ctx context.Context, tenantID uuid.UUID, series string) {
	if m == nil {
		return
	}
	m.chainFailures.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrSeries.String(series))
}
