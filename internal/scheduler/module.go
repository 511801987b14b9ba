package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "prodline_backend/internal/http"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
)

// Module exposes manual job triggers to administrators. The periodic
// schedule lives in cmd/scheduler; this only covers on-demand runs.
type Module struct {
	client *Client
	log    *logger.Logger
}

// NewModule creates the scheduler module. client may be nil when Redis is
// not configured; the trigger endpoint then answers 503.
func NewModule(client *Client, log *logger.Logger) *Module {
	return &Module{client: client, log: log}
}

func (m *Module) Name() string {
	return "scheduler"
}

// RegisterRoutes mounts the admin-only job triggers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/scans/stalled", m.triggerStalledScan)
}

// triggerStalledScan enqueues one stalled-order scan immediately.
// POST /api/v1/admin/scans/stalled
func (m *Module) triggerStalledScan(c *gin.Context) {
	if m.client == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "background jobs are not configured", nil)
		return
	}

	if err := m.client.EnqueueStalledScan(c.Request.Context()); err != nil {
		m.log.Error("enqueue stalled scan", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to enqueue scan", nil)
		return
	}
	httpkit.OK(c, gin.H{"enqueued": true})
}

var _ apphttp.Module = (*Module)(nil)
