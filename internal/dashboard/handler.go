package dashboard

import (
	"github.com/gin-gonic/gin"

	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
)

// Handler serves the dashboard endpoint.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Get returns the current dashboard snapshot.
// GET /api/v1/dashboard
func (h *Handler) Get(c *gin.Context) {
	snapshot, err := h.svc.GetSnapshot(c.Request.Context())
	if httpkit.HandleError(c, h.log, err) {
		return
	}
	httpkit.OK(c, snapshot)
}
