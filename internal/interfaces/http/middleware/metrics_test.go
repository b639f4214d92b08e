package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	mw, err := HTTPMetrics(HTTPMetricsConfig{Enabled: false})
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetrics_RecordsRequests(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(HTTPMetricsConfig{Meter: mp.Meter("http.server"), Enabled: true})
	require.NoError(t, err)

	router := gin.New()
	router.Use(TenantMiddleware(), mw)
	router.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/documents/"+uuid.NewString(), nil)
		req.Header.Set(TenantHeaderKey, uuid.NewString())
		req.Header.Set(UserHeaderKey, uuid.NewString())
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var count int64
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(attrHTTPRoute)
		assert.Equal(t, "/documents/:id", route.AsString())
		count += dp.Value
	}
	assert.Equal(t, int64(3), count)

	duration := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
}

func TestHTTPMetrics_UnknownRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(HTTPMetricsConfig{Meter: mp.Meter("http.server"), Enabled: true})
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum := total.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	route, _ := sum.DataPoints[0].Attributes.Value(attrHTTPRoute)
	assert.Equal(t, "unknown", route.AsString())
	status, _ := sum.DataPoints[0].Attributes.Value(attrHTTPStatus)
	assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
}
