package repository

import (
	"context"
	"time"

	"prodline_backend/internal/orders/lifecycle"

	"github.com/google/uuid"
)

// Order is a production order row. The assigned user is a weak reference:
// the order holds the id only and never owns the user's lifecycle.
type Order struct {
	ID                int64
	Code              string
	Description       string
	Quantity          int
	ClientName        string
	Size              string
	CurrentStage      lifecycle.Stage
	CurrentStatus     lifecycle.Status
	AssignedUserID    *uuid.UUID
	EstimatedDelivery time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HistoryEntry is one immutable row of the order's transition ledger.
// Previous stage/status are nil only on the order's creation record.
type HistoryEntry struct {
	ID             int64
	OrderID        int64
	PreviousStage  *lifecycle.Stage
	NewStage       lifecycle.Stage
	PreviousStatus *lifecycle.Status
	NewStatus      lifecycle.Status
	UserID         uuid.UUID
	Note           string
	CreatedAt      time.Time
}

// CreateParams contains parameters for creating a production order.
type CreateParams struct {
	Code              string
	Description       string
	Quantity          int
	ClientName        string
	Size              string
	EstimatedDelivery time.Time
	CreatedBy         uuid.UUID
}

// ListFilter narrows List results. All fields are optional and combined
// with logical AND.
type ListFilter struct {
	Stage          *lifecycle.Stage
	Status         *lifecycle.Status
	AssignedUserID *uuid.UUID
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	ClientName     string
	Size           string
}

// MutateFunc validates and applies a transition to the locked order. It may
// return a history entry to append in the same transaction; returning nil
// appends nothing (metadata-only updates such as assignment). When fn also
// leaves the order unchanged the row is not rewritten at all. Any error
// aborts the transaction unchanged.
type MutateFunc func(o *Order) (*HistoryEntry, error)

// OrderReader provides read operations for production orders.
type OrderReader interface {
	GetByID(ctx context.Context, id int64) (Order, error)
	GetByCode(ctx context.Context, code string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	History(ctx context.Context, orderID int64) ([]HistoryEntry, error)
}

// OrderWriter provides write operations for production orders. Every write
// that represents a lifecycle transition is atomic with its ledger append: a
// partial write (order updated without a ledger row, or vice versa) is never
// observable.
type OrderWriter interface {
	// Create inserts the order together with its synthetic creation history
	// entry in one transaction.
	Create(ctx context.Context, params CreateParams) (Order, error)

	// Mutate loads the order under a row lock, applies fn, persists the
	// updated order plus the returned history entry, and commits as one unit.
	Mutate(ctx context.Context, id int64, fn MutateFunc) (Order, error)

	// Delete removes the order only while it is still in its untouched
	// initial state (exactly the creation ledger row exists).
	Delete(ctx context.Context, id int64) error
}

// Repository combines all production order repository operations.
type Repository interface {
	OrderReader
	OrderWriter
}
