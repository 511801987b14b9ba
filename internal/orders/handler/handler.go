package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prodline_backend/internal/orders/service"
	"prodline_backend/internal/orders/transport"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
	"prodline_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOrderID   = "invalid order ID"
)

// Handler handles HTTP requests for production orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger
}

// New creates a new production orders handler.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

// List retrieves production orders with optional filters.
// GET /api/v1/orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.ListOrders(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new production order.
// POST /api/v1/orders
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateOrder(c.Request.Context(), req, identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.Created(c, result)
}

// GetByID retrieves a production order by ID.
// GET /api/v1/orders/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetOrderByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes an order that is still in its initial untouched state.
// DELETE /api/v1/orders/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.log, h.svc.DeleteOrder(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

// History retrieves the order's transition ledger.
// GET /api/v1/orders/:id/history
func (h *Handler) History(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetHistory(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// Advance moves the order to the next workstation.
// POST /api/v1/orders/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}

	result, err := h.svc.AdvanceStage(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// ChangeStage is the administrative stage override.
// POST /api/v1/orders/:id/stage
func (h *Handler) ChangeStage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ChangeStage(c.Request.Context(), id, req.Stage, req.Note, identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateStatus applies a new operational status.
// POST /api/v1/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, req.Note, identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// Assign sets the assigned-user reference on an order.
// POST /api/v1/orders/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req transport.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.AssignTask(c.Request.Context(), id, req.UserID)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

// BulkUpdateStatus applies one status change to a set of orders.
// POST /api/v1/orders/bulk/status
func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.BulkUpdateStatus(c.Request.Context(), req, identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, result)
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidOrderID, nil)
		return 0, false
	}
	return id, true
}
