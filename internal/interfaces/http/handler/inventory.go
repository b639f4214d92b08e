package handler

import (
	"time"

	appinv "github.com/erp/posting/internal/application/inventory"
	"github.com/erp/posting/internal/domain/inventory"
	"github.com/erp/posting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryHandler exposes the stock ledger, average costs and vendor bills
type InventoryHandler struct {
	BaseHandler
	ledger *appinv.LedgerService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *appinv.LedgerService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// MoveResultResponse is the outcome of a manual move
type MoveResultResponse struct {
	Move          appinv.StockMoveResponse    `json:"move"`
	OnHand        decimal.Decimal             `json:"on_hand"`
	NegativeStock *NegativeStockAlertResponse `json:"negative_stock_alert,omitempty"`
}

// NegativeStockAlertResponse represents a negative stock alert
type NegativeStockAlertResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	StockMoveID uuid.UUID       `json:"stock_move_id"`
	OnHand      decimal.Decimal `json:"on_hand"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OnHandResponse is the stock of a product in a warehouse
type OnHandResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type onHandQuery struct {
	WarehouseID string `form:"warehouse_id" binding:"required,uuid"`
}

// PostMove appends a manual stock move
// POST /inventory/moves
func (h *InventoryHandler) PostMove(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req appinv.PostMoveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd := appinv.PostMoveCommand{
		TenantID:    tenantID,
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LocationID:  req.LocationID,
		MoveType:    inventory.MoveType(req.MoveType),
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		Source:      inventory.MoveSource{Type: inventory.SourceTypeManual},
	}
	if userID != uuid.Nil {
		cmd.OperatorID = &userID
	}
	result, err := h.ledger.PostMove(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := MoveResultResponse{
		Move:   appinv.ToStockMoveResponse(result.Move),
		OnHand: result.OnHand,
	}
	if result.Alert != nil {
		alert := toNegativeStockAlertResponse(*result.Alert)
		resp.NegativeStock = &alert
	}
	h.Created(c, resp)
}

// ListMoves lists the ledger of a product
// GET /inventory/products/:product_id/moves
func (h *InventoryHandler) ListMoves(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	var filter appinv.MoveListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page := dto.Pagination{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	filter.Page, filter.PageSize = page.Page, page.PageSize

	moves, total, err := h.ledger.ListMoves(c.Request.Context(), tenantID, productID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, moves, total, page.Page, page.PageSize)
}

// GetCost returns the stored average cost of a product
// GET /inventory/products/:product_id/cost
func (h *InventoryHandler) GetCost(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	cost, err := h.ledger.GetProductCost(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}

// RecalculateCost replays the ledger of a product and stores the result
// POST /inventory/products/:product_id/cost/recalculate
func (h *InventoryHandler) RecalculateCost(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	cost, err := h.ledger.RecalculateProductCost(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}

// GetOnHand returns the on-hand quantity of a product in a warehouse
// GET /inventory/products/:product_id/on-hand?warehouse_id=
func (h *InventoryHandler) GetOnHand(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	var q onHandQuery
	if !h.BindQuery(c, &q) {
		return
	}
	warehouseID := uuid.MustParse(q.WarehouseID)
	qty, err := h.ledger.GetOnHand(c.Request.Context(), tenantID, productID, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, OnHandResponse{ProductID: productID, WarehouseID: warehouseID, Quantity: qty})
}

// ListNegativeStockAlerts lists the negative stock alerts of a product
// GET /inventory/products/:product_id/alerts
func (h *InventoryHandler) ListNegativeStockAlerts(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	alerts, err := h.ledger.ListNegativeStockAlerts(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]NegativeStockAlertResponse, len(alerts))
	for i, a := range alerts {
		out[i] = toNegativeStockAlertResponse(a)
	}
	h.Success(c, out)
}

// CreateVendorBill registers a purchase whose lines receive stock at cost
// POST /inventory/vendor-bills
func (h *InventoryHandler) CreateVendorBill(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	var req appinv.CreateVendorBillRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bill, err := h.ledger.CreateVendorBill(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}

// GetVendorBill returns a vendor bill
// GET /inventory/vendor-bills/:id
func (h *InventoryHandler) GetVendorBill(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	bill, err := h.ledger.GetVendorBill(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// ReceiveVendorBill posts an inflow per bill line. Lines that already have
// a move are skipped, so the call can be repeated safely.
// POST /inventory/vendor-bills/:id/receive
func (h *InventoryHandler) ReceiveVendorBill(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var operatorID *uuid.UUID
	if userID != uuid.Nil {
		operatorID = &userID
	}
	result, err := h.ledger.ReceiveVendorBill(c.Request.Context(), tenantID, id, operatorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PreviewVendorBill projects the average cost after each bill line without
// writing anything
// GET /inventory/vendor-bills/:id/preview
func (h *InventoryHandler) PreviewVendorBill(c *gin.Context) {
	tenantID, _, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lines, err := h.ledger.PreviewVendorBill(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

func toNegativeStockAlertResponse(a inventory.NegativeStockAlert) NegativeStockAlertResponse {
	return NegativeStockAlertResponse{
		ID:          a.ID,
		ProductID:   a.ProductID,
		WarehouseID: a.WarehouseID,
		StockMoveID: a.StockMoveID,
		OnHand:      a.OnHand,
		CreatedAt:   a.CreatedAt,
	}
}
