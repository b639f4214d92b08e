package handler

import (
	"encoding/json"
	"time"

	apppost "github.com/erp/posting/internal/application/posting"
	"github.com/erp/posting/internal/domain/compliance"
	"github.com/erp/posting/internal/domain/document"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentHandler handles draft editing, posting and corrections
type DocumentHandler struct {
	BaseHandler
	posting *apppost.Service
	keys    shared.RequestKeyStore
	keyTTL  time.Duration
}

// NewDocumentHandler creates a new DocumentHandler. keys may be nil, in which
// case Idempotency-Key headers are ignored.
func NewDocumentHandler(posting *apppost.Service, keys shared.RequestKeyStore, keyTTL time.Duration) *DocumentHandler {
	if keyTTL <= 0 {
		keyTTL = shared.DefaultIdempotencyTTL
	}
	return &DocumentHandler{posting: posting, keys: keys, keyTTL: keyTTL}
}

// UpdateHeaderRequest is the HTTP body for changing a draft header
type UpdateHeaderRequest struct {
	CustomerRef string     `json:"customer_ref" binding:"max=100"`
	IssueDate   *time.Time `json:"issue_date"`
}

// AuditLogResponse represents an audit entry in API responses
type AuditLogResponse struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ComplianceEventResponse represents a compliance event in API responses
type ComplianceEventResponse struct {
	ID         uuid.UUID       `json:"id"`
	DocumentID *uuid.UUID      `json:"document_id,omitempty"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateDraft creates a draft document
// POST /documents
func (h *DocumentHandler) CreateDraft(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req apppost.CreateDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := apppost.CreateDraftCommand{
		TenantID:    tenantID,
		UserID:      userID,
		Series:      req.Series,
		DocType:     document.DocType(req.DocType),
		Currency:    req.Currency,
		CustomerRef: req.CustomerRef,
		Lines:       apppost.ToLineInputs(req.Lines),
	}
	if req.IssueDate != nil {
		cmd.IssueDate = *req.IssueDate
	}
	doc, err := h.posting.CreateDraft(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, apppost.ToDocumentResponse(doc))
}

// GetDocument returns one document with its lines
// GET /documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.posting.GetDocument(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppost.ToDocumentResponse(doc))
}

// ListDocuments lists documents with filters and paging
// GET /documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	var filter apppost.DocumentListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PageSize

	docs, total, err := h.posting.ListDocuments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]apppost.DocumentResponse, len(docs))
	for i := range docs {
		out[i] = apppost.ToDocumentResponse(&docs[i])
	}
	h.SuccessWithMeta(c, out, total, page.Page, page.PageSize)
}

// ReplaceLines swaps all lines of a draft
// PUT /documents/:id/lines
func (h *DocumentHandler) ReplaceLines(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apppost.ReplaceLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.posting.ReplaceLines(c.Request.Context(), apppost.ReplaceLinesCommand{
		TenantID:   tenantID,
		UserID:     userID,
		DocumentID: id,
		Lines:      apppost.ToLineInputs(req.Lines),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppost.ToDocumentResponse(doc))
}

// UpdateHeader changes the customer reference and issue date of a draft
// PUT /documents/:id
func (h *DocumentHandler) UpdateHeader(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateHeaderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	var issueDate time.Time
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}
	doc, err := h.posting.UpdateHeader(c.Request.Context(), tenantID, id, req.CustomerRef, issueDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppost.ToDocumentResponse(doc))
}

// Post seals a draft into the hash chain. With an Idempotency-Key header a
// retried request returns the already posted document instead of failing.
// POST /documents/:id/post
func (h *DocumentHandler) Post(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}
	ctx := c.Request.Context()

	var storeKey string
	if key != "" && h.keys != nil {
		storeKey = "post:" + tenantID.String() + ":" + key
		bound, created, err := h.keys.Reserve(ctx, storeKey, id.String(), h.keyTTL)
		switch {
		case err != nil:
			// without the store a retried post fails with INVALID_STATE
			logger.L(ctx).Warn("Idempotency key store unavailable", zap.Error(err))
			storeKey = ""
		case !created && bound != id.String():
			h.Conflict(c, dto.ErrCodeIdempotencyConflict, "Idempotency-Key was already used for another document")
			return
		case !created:
			h.replayPost(c, tenantID, id)
			return
		}
	}

	doc, err := h.posting.Post(ctx, apppost.PostCommand{
		TenantID:   tenantID,
		UserID:     userID,
		DocumentID: id,
	})
	if err != nil {
		if storeKey != "" {
			if relErr := h.keys.Release(ctx, storeKey); relErr != nil {
				logger.L(ctx).Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppost.ToDocumentResponse(doc))
}

func (h *DocumentHandler) replayPost(c *gin.Context, tenantID, id uuid.UUID) {
	doc, err := h.posting.GetDocument(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if doc.Status != document.StatusPosted {
		h.Conflict(c, dto.ErrCodeIdempotencyConflict, "A request with this Idempotency-Key is still in progress")
		return
	}
	c.Header("Idempotent-Replayed", "true")
	h.Success(c, apppost.ToDocumentResponse(doc))
}

// Cancel abandons a draft
// POST /documents/:id/cancel
func (h *DocumentHandler) Cancel(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apppost.CancelRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.posting.Cancel(c.Request.Context(), apppost.CancelCommand{
		TenantID:   tenantID,
		UserID:     userID,
		DocumentID: id,
		Reason:     req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apppost.ToDocumentResponse(doc))
}

// CreateCreditNote drafts (or posts, with auto_post) a credit note that
// reverses a posted document
// POST /documents/:id/credit-notes
func (h *DocumentHandler) CreateCreditNote(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apppost.CreditNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	note, err := h.posting.CreateCreditNote(c.Request.Context(), apppost.CreditNoteCommand{
		TenantID:   tenantID,
		UserID:     userID,
		OriginalID: id,
		Series:     req.Series,
		Reason:     req.Reason,
		AutoPost:   req.AutoPost,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, apppost.ToDocumentResponse(note))
}

// AuditTrail lists the audit entries of a document
// GET /documents/:id/audit
func (h *DocumentHandler) AuditTrail(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.posting.AuditTrail(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]AuditLogResponse, len(entries))
	for i, e := range entries {
		out[i] = toAuditLogResponse(e)
	}
	h.Success(c, out)
}

// ComplianceEvents lists the compliance events of a document
// GET /documents/:id/events
func (h *DocumentHandler) ComplianceEvents(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	events, err := h.posting.ComplianceEvents(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]ComplianceEventResponse, len(events))
	for i, e := range events {
		out[i] = toComplianceEventResponse(e)
	}
	h.Success(c, out)
}

func toAuditLogResponse(e compliance.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:        e.ID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Details:   rawJSON(e.Details),
		CreatedAt: e.CreatedAt,
	}
}

func toComplianceEventResponse(e compliance.Event) ComplianceEventResponse {
	return ComplianceEventResponse{
		ID:         e.ID,
		DocumentID: e.DocumentID,
		EventType:  string(e.EventType),
		Payload:    rawJSON(e.Payload),
		CreatedAt:  e.CreatedAt,
	}
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}
