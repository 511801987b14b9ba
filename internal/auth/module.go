// Package auth provides the authentication bounded context module.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/internal/auth/handler"
	"prodline_backend/internal/auth/repository"
	"prodline_backend/internal/auth/service"
	apphttp "prodline_backend/internal/http"
	"prodline_backend/platform/config"
	"prodline_backend/platform/logger"
	"prodline_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val, log)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service for use by adapters (e.g., the orders
// user directory).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	// Protected user routes
	ctx.Protected.GET("/me", m.handler.Me)
	ctx.Protected.GET("/users", m.handler.ListUsers)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
