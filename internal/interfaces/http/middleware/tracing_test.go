package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prevTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prevTP)
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func newTracedRouter(status int) *gin.Engine {
	router := gin.New()
	router.Use(TracingWithConfig(DefaultTracingConfig()), SpanEnricher(), TenantMiddleware())
	router.GET("/documents/:id", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_RecordsRouteAndTenant(t *testing.T) {
	sr := setupTestTracer(t)
	tenantID := uuid.New()
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/documents/"+uuid.NewString(), nil)
	req.Header.Set(TenantHeaderKey, tenantID.String())
	req.Header.Set(UserHeaderKey, userID.String())
	req.Header.Set(RequestIDKey, "req-42")
	w := httptest.NewRecorder()
	newTracedRouter(http.StatusOK).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/documents/:id")

	v, ok := spanAttr(spans[0], "tenant_id")
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), v.AsString())
	v, ok = spanAttr(spans[0], "user_id")
	require.True(t, ok)
	assert.Equal(t, userID.String(), v.AsString())
	v, ok = spanAttr(spans[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-42", v.AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanEnricher_MarksErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			sr := setupTestTracer(t)

			req := httptest.NewRequest(http.MethodGet, "/documents/x", nil)
			req.Header.Set(TenantHeaderKey, uuid.NewString())
			req.Header.Set(UserHeaderKey, uuid.NewString())
			w := httptest.NewRecorder()
			newTracedRouter(status).ServeHTTP(w, req)

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
		})
	}
}

func TestSpanEnricher_TruncatesLongRequestID(t *testing.T) {
	sr := setupTestTracer(t)
	long := make([]byte, MaxRequestIDLength*2)
	for i := range long {
		long[i] = 'r'
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/x", nil)
	req.Header.Set(TenantHeaderKey, uuid.NewString())
	req.Header.Set(UserHeaderKey, uuid.NewString())
	req.Header.Set(RequestIDKey, string(long))
	newTracedRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	v, ok := spanAttr(spans[0], "request_id")
	require.True(t, ok)
	assert.Len(t, v.AsString(), MaxRequestIDLength)
}

func TestSpanEnricher_WithoutSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanEnricher())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTracing_SkipsHealthEndpoints(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(DefaultTracingConfig()))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/ready", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Empty(t, sr.Ended())
}
