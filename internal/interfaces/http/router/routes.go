package router

import (
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// DocumentRoutes mounts draft editing, posting and corrections
func DocumentRoutes(h *handler.DocumentHandler) Routes {
	return func(api *gin.RouterGroup) {
		docs := api.Group("/documents")
		docs.POST("", h.CreateDraft)
		docs.GET("", h.ListDocuments)

		doc := docs.Group("/:id")
		doc.GET("", h.GetDocument)
		doc.PUT("", h.UpdateHeader)
		doc.PUT("/lines", h.ReplaceLines)
		doc.POST("/post", h.Post)
		doc.POST("/cancel", h.Cancel)
		doc.POST("/credit-notes", h.CreateCreditNote)
		doc.GET("/audit", h.AuditTrail)
		doc.GET("/events", h.ComplianceEvents)
	}
}

// InventoryRoutes mounts the stock ledger and vendor bills
func InventoryRoutes(h *handler.InventoryHandler) Routes {
	return func(api *gin.RouterGroup) {
		inv := api.Group("/inventory")
		inv.POST("/moves", h.PostMove)

		product := inv.Group("/products/:product_id")
		product.GET("/moves", h.ListMoves)
		product.GET("/cost", h.GetCost)
		product.POST("/cost/recalculate", h.RecalculateCost)
		product.GET("/on-hand", h.GetOnHand)
		product.GET("/alerts", h.ListNegativeStockAlerts)

		bills := inv.Group("/vendor-bills")
		bills.POST("", h.CreateVendorBill)
		bills.GET("/:id", h.GetVendorBill)
		bills.POST("/:id/receive", h.ReceiveVendorBill)
		bills.GET("/:id/preview", h.PreviewVendorBill)
	}
}

// ComplianceRoutes mounts chain verification and registry exports
func ComplianceRoutes(h *handler.ComplianceHandler) Routes {
	return func(api *gin.RouterGroup) {
		c := api.Group("/compliance")
		c.POST("/chains/:series/verify", h.VerifyChain)
		c.POST("/exports", h.Export)
		c.GET("/exports", h.ListExports)
	}
}
