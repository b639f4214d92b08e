package models

// All returns every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&TenantModel{},
		&ProductModel{},
		&DocumentModel{},
		&DocumentLineModel{},
		&DocumentSeriesModel{},
		&StockMoveModel{},
		&ProductCostModel{},
		&StockOnHandModel{},
		&NegativeStockAlertModel{},
		&ComplianceEventModel{},
		&AuditLogModel{},
		&ExportBatchModel{},
		&VendorBillModel{},
		&VendorBillLineModel{},
		&OutboxEventModel{},
	}
}
