package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prodline_backend/internal/auth/service"
	"prodline_backend/internal/auth/transport"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
	"prodline_backend/platform/validator"
)

// Handler handles authentication HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger
}

func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

// RegisterRoutes mounts the public auth routes on the given group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/signin", h.SignIn)
	group.POST("/refresh", h.Refresh)
	group.POST("/signout", h.SignOut)
}

// SignIn exchanges credentials for a token pair.
// POST /api/v1/auth/signin
func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	pair, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, pair)
}

// Refresh rotates a refresh token into a new token pair.
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, pair)
}

// SignOut revokes a refresh token.
// POST /api/v1/auth/signout
func (h *Handler) SignOut(c *gin.Context) {
	var req transport.SignOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	if httpkit.HandleError(c, h.log, h.svc.SignOut(c.Request.Context(), req.RefreshToken)) {
		return
	}
	httpkit.OK(c, gin.H{"signedOut": true})
}

// Me returns the authenticated user's profile.
// GET /api/v1/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.svc.Me(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, user)
}

// ListUsers returns all accounts for assignment pickers.
// GET /api/v1/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, users)
}
