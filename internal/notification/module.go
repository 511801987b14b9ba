// Package notification fans committed order transitions out to connected
// viewers. Delivery is best-effort and never blocks or fails the
// triggering lifecycle operation.
package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prodline_backend/internal/events"
	apphttp "prodline_backend/internal/http"
	"prodline_backend/internal/notification/sse"
	"prodline_backend/platform/httpkit"
	"prodline_backend/platform/logger"
)

// Module owns the SSE registry and the optional Redis bridge.
type Module struct {
	sse    *sse.Service
	bridge *Bridge
	log    *logger.Logger
}

// New creates the notification module. redisURL may be empty, in which
// case fan-out stays process-local.
func New(redisURL, channel string, log *logger.Logger) *Module {
	m := &Module{
		sse: sse.New(log),
		log: log,
	}

	if redisURL != "" {
		bridge, err := NewBridge(redisURL, channel, m.sse, log)
		if err != nil {
			log.Warn("redis broadcast bridge disabled", "error", err)
		} else {
			m.bridge = bridge
			log.Info("redis broadcast bridge connected", "channel", channel)
		}
	}

	return m
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE exposes the registry for modules that broadcast directly.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterHandlers subscribes the module to order lifecycle events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe("orders.created", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.OrderCreated); ok {
			m.fanOut(ctx, sse.Event{
				Type:    sse.EventOrderCreated,
				OrderID: evt.OrderID,
				Code:    evt.Code,
				Stage:   string(evt.Stage),
				Status:  string(evt.Status),
				At:      evt.OccurredAt(),
			})
		}
		return nil
	}))

	bus.Subscribe("orders.transitioned", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.OrderTransitioned); ok {
			m.fanOut(ctx, sse.Event{
				Type:    sse.EventOrderTransitioned,
				OrderID: evt.OrderID,
				Code:    evt.Code,
				Stage:   string(evt.Stage),
				Status:  string(evt.Status),
				At:      evt.OccurredAt(),
			})
		}
		return nil
	}))

	bus.Subscribe("orders.stalled", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.OrderStalled); ok {
			m.fanOut(ctx, sse.Event{
				Type:    sse.EventOrderStalled,
				OrderID: evt.OrderID,
				Code:    evt.Code,
				Stage:   string(evt.Stage),
				Status:  string(evt.Status),
				At:      evt.OccurredAt(),
			})
		}
		return nil
	}))
}

func (m *Module) fanOut(ctx context.Context, event sse.Event) {
	m.sse.Broadcast(event)
	if m.bridge != nil {
		m.bridge.Publish(ctx, event)
	}
}

// RegisterRoutes mounts the SSE stream endpoint. The auth middleware
// accepts a query-param token because EventSource cannot set headers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	stream := ctx.V1.Group("/events")
	stream.Use(ctx.AuthMiddleware)
	stream.GET("/stream", m.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			return uuid.Nil, false
		}
		return identity.UserID(), true
	}))
}

// Close disconnects all viewers and the Redis bridge.
func (m *Module) Close() {
	m.sse.Close()
	if m.bridge != nil {
		_ = m.bridge.Close()
	}
}

var _ apphttp.Module = (*Module)(nil)
