package exports

import (
	apphttp "prodline_backend/internal/http"
	"prodline_backend/internal/orders/repository"
	"prodline_backend/platform/logger"
)

// Module wires the export download routes.
type Module struct {
	handler *Handler
}

// NewModule creates the exports module over the orders read surface.
func NewModule(orders repository.OrderReader, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(orders, log)}
}

func (m *Module) Name() string {
	return "exports"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/exports")
	group.GET("/orders.csv", m.handler.OrdersCSV)
	group.GET("/orders/:id/history.csv", m.handler.HistoryCSV)

	ctx.Protected.GET("/orders/:id/report.pdf", m.handler.OrderReportPDF)
}

var _ apphttp.Module = (*Module)(nil)
