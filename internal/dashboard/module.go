package dashboard

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "prodline_backend/internal/http"
	"prodline_backend/platform/logger"
)

// Module wires the dashboard HTTP routes.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	svc := NewService(NewReader(pool), log)
	h := NewHandler(svc, log)
	return &Module{handler: h}
}

func (m *Module) Name() string {
	return "dashboard"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/dashboard", m.handler.Get)
}

var _ apphttp.Module = (*Module)(nil)
