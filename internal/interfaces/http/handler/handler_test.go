package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appcomp "github.com/erp/posting/internal/application/compliance"
	appinv "github.com/erp/posting/internal/application/inventory"
	apppost "github.com/erp/posting/internal/application/posting"
	"github.com/erp/posting/internal/domain/catalog"
	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/cache"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/erp/posting/internal/interfaces/http/router"
	"github.com/erp/posting/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var handlerNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m *memStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "mem://" + key, handlerNow.Add(expiresIn), nil
}

type apiFixture struct {
	engine      *gin.Engine
	tenant      *identity.Tenant
	userID      uuid.UUID
	warehouseID uuid.UUID
	widget      *catalog.Product
	storage     *memStorage
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)

	tenant, err := identity.NewTenant("ACME", "Acme Retail", "B12345678", "EUR", handlerNow)
	require.NoError(t, err)
	warehouseID := uuid.New()
	tenant.SetDefaultStockLocation(warehouseID, nil, handlerNow)
	tenants := persistence.NewGormTenantRepository(db)
	require.NoError(t, tenants.Save(ctx, tenant))

	widget, err := catalog.NewProduct(tenant.ID, "W-1", "Widget", catalog.ProductKindStockable, handlerNow)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(db).Save(ctx, widget))

	ledger := appinv.NewLedgerService(
		persistence.NewGormInventoryTransactionScope(db),
		persistence.NewGormStockMoveRepository(db),
		persistence.NewGormProductCostRepository(db),
		persistence.NewGormStockOnHandRepository(db),
		persistence.NewGormNegativeStockAlertRepository(db),
		persistence.NewGormVendorBillRepository(db),
	)
	ledger.SetTenantRepository(tenants)
	ledger.SetClock(shared.FixedClock{At: handlerNow})

	opts := apppost.DefaultOptions()
	opts.RetryBackoff = time.Millisecond
	posting := apppost.NewService(
		persistence.NewGormPostingTransactionScope(db),
		persistence.NewGormDocumentRepository(db),
		tenants,
		persistence.NewGormComplianceEventRepository(db),
		persistence.NewGormAuditLogRepository(db),
		ledger,
		opts,
	)
	posting.SetClock(shared.FixedClock{At: handlerNow})

	storage := &memStorage{objects: make(map[string][]byte)}
	compliance := appcomp.NewService(
		persistence.NewGormDocumentRepository(db),
		tenants,
		persistence.NewGormComplianceEventRepository(db),
		persistence.NewGormExportBatchRepository(db),
		storage,
	)
	compliance.SetClock(shared.FixedClock{At: handlerNow})

	keys := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = keys.Close() })

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Lookup = tenants

	engine := gin.New()
	router.NewRouter(engine,
		router.WithAPIMiddleware(middleware.TenantMiddlewareWithConfig(tenantCfg)),
		router.WithSystemHandler(handler.NewSystemHandler("test", nil)),
	).Register(
		router.DocumentRoutes(handler.NewDocumentHandler(posting, keys, time.Hour)),
		router.InventoryRoutes(handler.NewInventoryHandler(ledger)),
		router.ComplianceRoutes(handler.NewComplianceHandler(compliance)),
	).Setup()

	return &apiFixture{
		engine:      engine,
		tenant:      tenant,
		userID:      uuid.New(),
		warehouseID: warehouseID,
		widget:      widget,
		storage:     storage,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, f.tenant.ID.String())
	req.Header.Set(middleware.UserHeaderKey, f.userID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// createTicket drafts a ticket with one stockable line
func (f *apiFixture) createTicket(t *testing.T, qty string) apppost.DocumentResponse {
	t.Helper()
	w, resp := f.do(t, http.MethodPost, "/documents", map[string]any{
		"doc_type": "ticket",
		"lines": []map[string]any{{
			"product_id":  f.widget.ID,
			"description": "Widget",
			"quantity":    qty,
			"unit_price":  "12.10",
			"tax_rate":    "21",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[apppost.DocumentResponse](t, resp.Data)
}
