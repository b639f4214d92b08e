package handler

import (
	appcomp "github.com/erp/posting/internal/application/compliance"
	"github.com/gin-gonic/gin"
)

// ComplianceHandler exposes chain verification and registry exports
type ComplianceHandler struct {
	BaseHandler
	compliance *appcomp.Service
}

// NewComplianceHandler creates a new ComplianceHandler
func NewComplianceHandler(compliance *appcomp.Service) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// VerifyChain re-derives the hash chain of a series. A broken chain is a
// 200 response whose report carries the first break.
// POST /compliance/chains/:series/verify
func (h *ComplianceHandler) VerifyChain(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	series := c.Param("series")
	if series == "" || len(series) > 20 {
		h.BadRequest(c, "Invalid series")
		return
	}
	report, err := h.compliance.VerifyChain(c.Request.Context(), tenantID, series)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"valid":  report.Valid(),
		"report": report,
	})
}

// Export writes the registry of a period to object storage
// POST /compliance/exports
func (h *ComplianceHandler) Export(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req appcomp.ExportRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.compliance.Export(c.Request.Context(), appcomp.ExportCommand{
		TenantID: tenantID,
		UserID:   userID,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListExports lists past exports, newest first
// GET /compliance/exports
func (h *ComplianceHandler) ListExports(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	batches, err := h.compliance.ListExports(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}
