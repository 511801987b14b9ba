// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/platform/events"
	"prodline_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Production Order Domain Events
// =============================================================================

// OrderCreated is published when a production order enters the floor.
type OrderCreated struct {
	BaseEvent
	OrderID int64            `json:"orderId"`
	Code    string           `json:"code"`
	Stage   lifecycle.Stage  `json:"stage"`
	Status  lifecycle.Status `json:"status"`
	ByUser  uuid.UUID        `json:"byUser"`
}

func (e OrderCreated) EventName() string { return "orders.created" }

// OrderTransitioned is published after any committed stage or status
// transition. Fan-out to viewers is best-effort and carries only the order
// id and the post-transition state.
type OrderTransitioned struct {
	BaseEvent
	OrderID int64            `json:"orderId"`
	Code    string           `json:"code"`
	Stage   lifecycle.Stage  `json:"stage"`
	Status  lifecycle.Status `json:"status"`
	ByUser  uuid.UUID        `json:"byUser"`
}

func (e OrderTransitioned) EventName() string { return "orders.transitioned" }

// OrderStalled is published by the background scan for orders that have been
// stopped longer than the configured threshold.
type OrderStalled struct {
	BaseEvent
	OrderID int64            `json:"orderId"`
	Code    string           `json:"code"`
	Stage   lifecycle.Stage  `json:"stage"`
	Status  lifecycle.Status `json:"status"`
}

func (e OrderStalled) EventName() string { return "orders.stalled" }
