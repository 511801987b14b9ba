package sse

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"prodline_backend/platform/logger"
)

func newTestClient() *client {
	return &client{
		userID: uuid.New(),
		events: make(chan Event, clientBuffer),
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	svc := New(logger.New("test"))
	a := newTestClient()
	b := newTestClient()
	svc.addClient(a)
	svc.addClient(b)
	defer svc.Close()

	evt := Event{
		Type:    EventOrderTransitioned,
		OrderID: 42,
		Code:    "OP-42",
		Stage:   "sewing",
		Status:  "in_production",
		At:      time.Now(),
	}
	svc.Broadcast(evt)

	for _, cl := range []*client{a, b} {
		select {
		case got := <-cl.events:
			if got.OrderID != 42 || got.Stage != "sewing" {
				t.Errorf("got event %+v, want order 42 at sewing", got)
			}
		default:
			t.Error("client did not receive the event")
		}
	}
}

func TestBroadcastDropsWhenClientBufferFull(t *testing.T) {
	svc := New(logger.New("test"))
	slow := newTestClient()
	svc.addClient(slow)
	defer svc.Close()

	for i := 0; i < clientBuffer+10; i++ {
		svc.Broadcast(Event{Type: EventOrderTransitioned, OrderID: int64(i)})
	}

	if got := len(slow.events); got != clientBuffer {
		t.Fatalf("buffered events = %d, want %d (overflow must be dropped, not block)", got, clientBuffer)
	}
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	svc := New(logger.New("test"))
	cl := newTestClient()
	svc.addClient(cl)

	svc.removeClient(cl)
	if svc.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", svc.ClientCount())
	}

	// Channel is closed; broadcast must not panic or resurrect the client.
	svc.Broadcast(Event{Type: EventOrderCreated, OrderID: 1})

	if _, open := <-cl.events; open {
		t.Error("client channel still open after removal")
	}

	// Removing twice is a no-op.
	svc.removeClient(cl)
}
