// Package sse provides Server-Sent Events support for real-time order
// transition notifications.
package sse

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prodline_backend/platform/logger"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventOrderCreated      EventType = "order_created"
	EventOrderTransitioned EventType = "order_transitioned"
	EventOrderStalled      EventType = "order_stalled"
)

// Event represents an SSE event payload. It carries only the order id and
// post-transition state; viewers re-fetch details if they need them.
type Event struct {
	Type    EventType `json:"type"`
	OrderID int64     `json:"orderId"`
	Code    string    `json:"code"`
	Stage   string    `json:"stage"`
	Status  string    `json:"status"`
	At      time.Time `json:"at"`
}

// client represents a connected SSE viewer
type client struct {
	userID uuid.UUID
	events chan Event
}

// clientBuffer bounds the per-viewer queue; a viewer that cannot keep up
// loses events rather than slowing the broadcast.
const clientBuffer = 32

// Service manages SSE connections and event broadcasting. Delivery is
// best-effort: no ordering guarantee across viewers, no catch-up for
// viewers that connect after a transition.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.events)
}

// ClientCount returns the number of connected viewers.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends an event to every connected viewer. Sends never block:
// a full client buffer drops the event for that viewer only.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event dropped, client buffer full", "userId", c.userID, "orderId", event.OrderID)
		}
	}
}

// Handler returns a Gin handler for SSE connections.
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.AbortWithStatus(401)
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			events: make(chan Event, clientBuffer),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Info("sse client connected", "userId", userID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Info("sse client disconnected", "userId", userID)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects all viewers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[*client]struct{})
}
