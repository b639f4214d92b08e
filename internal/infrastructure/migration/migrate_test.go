package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/erp/posting/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	all, err := List()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 3)

	assert.Equal(t, uint(1), all[0].Version)
	assert.Equal(t, "init_schema", all[0].Name)
	assert.Equal(t, uint(2), all[1].Version)
	assert.Equal(t, "immutability_triggers", all[1].Name)
	assert.Equal(t, uint(3), all[2].Version)
	assert.Equal(t, "vendor_bill_receipt_unique", all[2].Name)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version)
	}
}

func TestEmbeddedMigrations_HaveDownFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		down := strings.TrimSuffix(name, ".up.sql") + ".down.sql"
		assert.True(t, names[down], "missing %s", down)
	}
}

func TestImmutabilityTriggers_CoverAppendOnlyTables(t *testing.T) {
	data, err := fs.ReadFile(migrations.FS, "000002_immutability_triggers.up.sql")
	require.NoError(t, err)
	sql := string(data)

	for _, table := range []string{"documents", "document_lines", "stock_moves", "compliance_events", "audit_logs", "export_batches"} {
		assert.Contains(t, sql, "ON "+table+"\n", "no trigger on %s", table)
	}
	assert.Contains(t, sql, "immutable")
}

func TestVendorBillReceiptIndex_IsPartialUnique(t *testing.T) {
	data, err := fs.ReadFile(migrations.FS, "000003_vendor_bill_receipt_unique.up.sql")
	require.NoError(t, err)
	sql := string(data)

	assert.Contains(t, sql, "CREATE UNIQUE INDEX uq_stock_moves_vendor_bill_line")
	assert.Contains(t, sql, "WHERE source_type = 'vendor_bill'")
}
