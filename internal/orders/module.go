// Package orders provides the production order bounded context module.
package orders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/internal/events"
	apphttp "prodline_backend/internal/http"
	"prodline_backend/internal/orders/handler"
	"prodline_backend/internal/orders/repository"
	"prodline_backend/internal/orders/service"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
	"prodline_backend/platform/validator"
)

// Module is the orders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the orders module with all its dependencies.
// The user directory is injected so orders never reach into the auth schema.
func NewModule(pool *pgxpool.Pool, users service.UserDirectory, val *validator.Validator, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, users, eventBus, log)
	h := handler.New(svc, val, log)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the lifecycle engine for use by other modules (exports,
// scheduler).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the order repository for read-only consumers.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	orders := ctx.Protected.Group("/orders")
	orders.GET("", m.handler.List)
	orders.POST("", m.handler.Create)
	orders.GET("/:id", m.handler.GetByID)
	orders.GET("/:id/history", m.handler.History)
	orders.POST("/:id/advance", m.handler.Advance)
	orders.POST("/:id/status", m.handler.UpdateStatus)
	orders.POST("/:id/assign", m.handler.Assign)
	orders.POST("/bulk/status", m.handler.BulkUpdateStatus)

	// Stage overrides and deletion are admin-only.
	ctx.Protected.POST("/orders/:id/stage", httpkit.RequireRole("admin"), m.handler.ChangeStage)
	ctx.Protected.DELETE("/orders/:id", httpkit.RequireRole("admin"), m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
