package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/identity"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCommand(t *testing.T) {
	tenant := uuid.NewString()
	doc := uuid.NewString()

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, c *command)
	}{
		{
			name: "post",
			args: []string{"post", "-tenant", tenant, "-document", doc},
			check: func(t *testing.T, c *command) {
				assert.Equal(t, doc, c.targetID.String())
				assert.Equal(t, uuid.Nil, c.userID)
			},
		},
		{
			name:    "post without document",
			args:    []string{"post", "-tenant", tenant},
			wantErr: "-document is required",
		},
		{
			name:    "bad tenant",
			args:    []string{"verify", "-tenant", "acme", "-series", "T"},
			wantErr: "invalid -tenant",
		},
		{
			name:    "verify without series",
			args:    []string{"verify", "-tenant", tenant},
			wantErr: "-series is required",
		},
		{
			name: "export single day",
			args: []string{"export", "-tenant", tenant, "-from", "2026-03-01"},
			check: func(t *testing.T, c *command) {
				assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), c.from)
				assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), c.to)
			},
		},
		{
			name: "export range is inclusive",
			args: []string{"export", "-tenant", tenant, "-from", "2026-03-01", "-to", "2026-03-31"},
			check: func(t *testing.T, c *command) {
				assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), c.to)
			},
		},
		{
			name:    "export reversed range",
			args:    []string{"export", "-tenant", tenant, "-from", "2026-03-02", "-to", "2026-03-01"},
			wantErr: "-to must not be before -from",
		},
		{
			name:    "unknown command",
			args:    []string{"reopen", "-tenant", tenant},
			wantErr: `unknown command "reopen"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := parseCommand(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c.operation)
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestExecute_ReportsDomainErrors(t *testing.T) {
	c := &command{
		name: "post",
		operation: func(context.Context, *services, *command) (any, error) {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot post document in posted status")
		},
	}
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), nil, c, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "erpctl post: INVALID_STATE: Cannot post document in posted status\n", stderr.String())
}

func TestExecute_PlainError(t *testing.T) {
	c := &command{
		name: "export",
		operation: func(context.Context, *services, *command) (any, error) {
			return nil, errors.New("bucket unavailable")
		},
	}
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, execute(context.Background(), nil, c, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "bucket unavailable")
}

func newTestServices(t *testing.T) (*services, *identity.Tenant) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	now := time.Now().UTC()

	tenant, err := identity.NewTenant("ACME", "Acme Retail", "B12345678", "EUR", now)
	require.NoError(t, err)
	tenant.SetDefaultStockLocation(uuid.New(), nil, now)
	require.NoError(t, persistence.NewGormTenantRepository(db).Save(context.Background(), tenant))

	cfg := &config.Config{
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Posting: config.PostingConfig{NegativeStockAlerts: true, MaxRetries: 3},
	}
	svc, err := newServices(context.Background(), cfg, &persistence.Database{DB: db}, zap.NewNop())
	require.NoError(t, err)
	return svc, tenant
}

func TestExecute_VerifyEmptyChain(t *testing.T) {
	svc, tenant := newTestServices(t)
	c, err := parseCommand([]string{"verify", "-tenant", tenant.ID.String(), "-series", "T"})
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), svc, c, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Valid  bool `json:"valid"`
		Report struct {
			Checked int `json:"checked"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.True(t, out.Valid)
	assert.Zero(t, out.Report.Checked)
}

func TestExecute_PostUnknownDocument(t *testing.T) {
	svc, tenant := newTestServices(t)
	c, err := parseCommand([]string{"post", "-tenant", tenant.ID.String(), "-document", uuid.NewString()})
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), svc, c, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "erpctl post: NOT_FOUND")
}

func TestExecute_RecalcCostUnknownProduct(t *testing.T) {
	svc, tenant := newTestServices(t)
	c, err := parseCommand([]string{"recalc-cost", "-tenant", tenant.ID.String(), "-product", uuid.NewString()})
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer

	code := execute(context.Background(), svc, c, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "erpctl recalc-cost: NOT_FOUND")
}
