package exports

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/internal/orders/repository"
	"prodline_backend/internal/pdf"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
)

// Handler serves CSV and PDF downloads of order data.
type Handler struct {
	orders repository.OrderReader
	log    *logger.Logger
}

// NewHandler creates a new export handler.
func NewHandler(orders repository.OrderReader, log *logger.Logger) *Handler {
	return &Handler{orders: orders, log: log}
}

// OrdersCSV streams the order list as CSV, optionally filtered by stage
// and status.
// GET /api/v1/exports/orders.csv
func (h *Handler) OrdersCSV(c *gin.Context) {
	var filter repository.ListFilter
	if v := c.Query("stage"); v != "" {
		stage, err := lifecycle.ParseStage(v)
		if httpkit.HandleError(c, h.log, err) {
			return
		}
		filter.Stage = &stage
	}
	if v := c.Query("status"); v != "" {
		status, err := lifecycle.ParseStatus(v)
		if httpkit.HandleError(c, h.log, err) {
			return
		}
		filter.Status = &status
	}

	orders, err := h.orders.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename=production-orders.csv`)
	if err := WriteOrdersCSV(c.Writer, orders); err != nil {
		h.log.Error("write orders csv", "error", err)
	}
}

// HistoryCSV streams one order's ledger as CSV.
// GET /api/v1/exports/orders/:id/history.csv
func (h *Handler) HistoryCSV(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	entries, err := h.orders.History(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename=order-history.csv`)
	if err := WriteHistoryCSV(c.Writer, entries); err != nil {
		h.log.Error("write history csv", "error", err)
	}
}

// OrderReportPDF renders a full order report with its transition ledger.
// GET /api/v1/orders/:id/report.pdf
func (h *Handler) OrderReportPDF(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	entries, err := h.orders.History(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	report, err := pdf.GenerateOrderReport(toReportData(order, entries))
	if err != nil {
		h.log.Error("generate order report", "error", err, "orderId", id)
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate report", nil)
		return
	}

	c.Header("Content-Disposition", `attachment; filename=order-report.pdf`)
	c.Data(http.StatusOK, "application/pdf", report)
}

func toReportData(order repository.Order, entries []repository.HistoryEntry) pdf.OrderReportData {
	history := make([]pdf.HistoryRow, len(entries))
	for i, e := range entries {
		h := pdf.HistoryRow{
			At:        e.CreatedAt,
			NewStage:  string(e.NewStage),
			NewStatus: string(e.NewStatus),
			Note:      e.Note,
		}
		if e.PreviousStage != nil {
			h.PreviousStage = string(*e.PreviousStage)
		}
		if e.PreviousStatus != nil {
			h.PreviousStatus = string(*e.PreviousStatus)
		}
		history[i] = h
	}

	return pdf.OrderReportData{
		Code:              order.Code,
		Description:       order.Description,
		Quantity:          order.Quantity,
		ClientName:        order.ClientName,
		Size:              order.Size,
		CurrentStage:      string(order.CurrentStage),
		CurrentStatus:     string(order.CurrentStatus),
		EstimatedDelivery: order.EstimatedDelivery,
		CreatedAt:         order.CreatedAt,
		History:           history,
	}
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid order ID", nil)
		return 0, false
	}
	return id, true
}
