// Package service implements the production order lifecycle engine: it
// validates and applies stage/status transitions, keeps the order and its
// append-only ledger consistent, and publishes transition events after the
// atomic write commits.
package service

import (
	"context"

	"github.com/google/uuid"

	"prodline_backend/internal/events"
	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/internal/orders/repository"
	"prodline_backend/internal/orders/transport"
	"prodline_backend/platform/apperr"
	"prodline_backend/platform/logger"
)

// UserDirectory resolves weak user references. Orders hold user ids only;
// the user's lifecycle is owned by the auth module.
type UserDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service is the lifecycle engine. It is stateless between calls; all
// durable state lives in the repository.
type Service struct {
	repo  repository.Repository
	users UserDirectory
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new lifecycle engine.
func New(repo repository.Repository, users UserDirectory, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, bus: bus, log: log}
}

// CreateOrder creates an order at (cutting, in_production) together with its
// synthetic creation ledger entry, atomically. A code collision is rejected
// and leaves no order and no ledger row behind.
func (s *Service) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, createdBy uuid.UUID) (transport.OrderResponse, error) {
	if req.Quantity <= 0 {
		return transport.OrderResponse{}, apperr.Validation("quantity must be greater than zero")
	}

	order, err := s.repo.Create(ctx, repository.CreateParams{
		Code:              req.Code,
		Description:       req.Description,
		Quantity:          req.Quantity,
		ClientName:        req.ClientName,
		Size:              req.Size,
		EstimatedDelivery: req.EstimatedDelivery,
		CreatedBy:         createdBy,
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}

	s.log.OrderTransition(order.ID, order.Code, string(order.CurrentStage), string(order.CurrentStatus))
	s.bus.Publish(ctx, events.OrderCreated{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   order.ID,
		Code:      order.Code,
		Stage:     order.CurrentStage,
		Status:    order.CurrentStatus,
		ByUser:    createdBy,
	})

	return toResponse(order), nil
}

// GetOrderByID retrieves a single production order.
func (s *Service) GetOrderByID(ctx context.Context, id int64) (transport.OrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	return toResponse(order), nil
}

// ListOrders retrieves orders matching the optional AND-combined filters.
func (s *Service) ListOrders(ctx context.Context, req transport.ListOrdersRequest) (transport.OrderListResponse, error) {
	filter := repository.ListFilter{
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		ClientName:  req.ClientName,
		Size:        req.Size,
	}

	if req.Stage != "" {
		stage, err := lifecycle.ParseStage(req.Stage)
		if err != nil {
			return transport.OrderListResponse{}, err
		}
		filter.Stage = &stage
	}
	if req.Status != "" {
		status, err := lifecycle.ParseStatus(req.Status)
		if err != nil {
			return transport.OrderListResponse{}, err
		}
		filter.Status = &status
	}
	if req.AssignedUserID != "" {
		userID, err := uuid.Parse(req.AssignedUserID)
		if err != nil {
			return transport.OrderListResponse{}, apperr.Validation("invalid assigned user id")
		}
		filter.AssignedUserID = &userID
	}

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return transport.OrderListResponse{}, err
	}

	items := make([]transport.OrderResponse, len(orders))
	for i, o := range orders {
		items[i] = toResponse(o)
	}
	return transport.OrderListResponse{Items: items, Total: len(items)}, nil
}

// GetHistory retrieves the order's full transition ledger, oldest first.
func (s *Service) GetHistory(ctx context.Context, orderID int64) (transport.HistoryResponse, error) {
	entries, err := s.repo.History(ctx, orderID)
	if err != nil {
		return transport.HistoryResponse{}, err
	}

	out := make([]transport.HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toHistoryResponse(e)
	}
	return transport.HistoryResponse{OrderID: orderID, Entries: out}, nil
}

// AdvanceStage moves the order to the next workstation in the fixed
// sequence. Advancing past packaging is a terminal-state rejection.
func (s *Service) AdvanceStage(ctx context.Context, orderID int64, actingUser uuid.UUID) (transport.OrderResponse, error) {
	order, err := s.repo.Mutate(ctx, orderID, func(o *repository.Order) (*repository.HistoryEntry, error) {
		next, ok := lifecycle.NextStage(o.CurrentStage)
		if !ok {
			return nil, apperr.TerminalState("order is already at the final stage")
		}

		entry := transitionEntry(o, actingUser, "")
		o.CurrentStage = next
		entry.NewStage = next
		return entry, nil
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}

	s.notifyTransition(ctx, order, actingUser)
	return toResponse(order), nil
}

// ChangeStage is the administrative override: it may place the order at any
// workstation, including backward moves, and always requires a note so the
// override is ledgered with its reason.
func (s *Service) ChangeStage(ctx context.Context, orderID int64, targetStage, note string, actingUser uuid.UUID) (transport.OrderResponse, error) {
	stage, err := lifecycle.ParseStage(targetStage)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	if note == "" {
		return transport.OrderResponse{}, apperr.Validation("a note is required for a stage override")
	}

	order, err := s.repo.Mutate(ctx, orderID, func(o *repository.Order) (*repository.HistoryEntry, error) {
		entry := transitionEntry(o, actingUser, note)
		o.CurrentStage = stage
		entry.NewStage = stage
		return entry, nil
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}

	s.notifyTransition(ctx, order, actingUser)
	return toResponse(order), nil
}

// UpdateStatus applies a new operational status. Terminal statuses are
// absorbing: changing away from one is rejected, while re-setting the same
// terminal value is an idempotent no-op that appends no ledger entry.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, targetStatus, note string, actingUser uuid.UUID) (transport.OrderResponse, error) {
	status, err := lifecycle.ParseStatus(targetStatus)
	if err != nil {
		return transport.OrderResponse{}, err
	}

	changed := false
	order, err := s.repo.Mutate(ctx, orderID, func(o *repository.Order) (*repository.HistoryEntry, error) {
		if o.CurrentStatus.IsTerminal() {
			if status == o.CurrentStatus {
				return nil, nil
			}
			return nil, apperr.InvalidTransition("order is in a terminal status: " + string(o.CurrentStatus))
		}

		changed = true
		entry := transitionEntry(o, actingUser, note)
		o.CurrentStatus = status
		entry.NewStatus = status
		return entry, nil
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}

	if changed {
		s.notifyTransition(ctx, order, actingUser)
	}
	return toResponse(order), nil
}

// AssignTask sets the assigned-user reference. Assignment is metadata, not a
// lifecycle transition: no ledger entry is appended, only the modification
// timestamp moves.
func (s *Service) AssignTask(ctx context.Context, orderID int64, userID uuid.UUID) (transport.OrderResponse, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	if !exists {
		return transport.OrderResponse{}, apperr.NotFound("user not found")
	}

	order, err := s.repo.Mutate(ctx, orderID, func(o *repository.Order) (*repository.HistoryEntry, error) {
		o.AssignedUserID = &userID
		return nil, nil
	})
	if err != nil {
		return transport.OrderResponse{}, err
	}
	return toResponse(order), nil
}

// DeleteOrder removes an order that is still in its untouched initial state.
// Once any transition beyond creation is ledgered, deletion is refused.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.repo.Delete(ctx, orderID)
}

// notifyTransition publishes the post-transition state. Publishing is
// asynchronous and best-effort; a slow or failing subscriber never blocks or
// fails the lifecycle operation.
func (s *Service) notifyTransition(ctx context.Context, order repository.Order, actingUser uuid.UUID) {
	s.log.OrderTransition(order.ID, order.Code, string(order.CurrentStage), string(order.CurrentStatus))
	s.bus.Publish(ctx, events.OrderTransitioned{
		BaseEvent: events.NewBaseEvent(),
		OrderID:   order.ID,
		Code:      order.Code,
		Stage:     order.CurrentStage,
		Status:    order.CurrentStatus,
		ByUser:    actingUser,
	})
}

// transitionEntry seeds a ledger entry from the order's pre-transition
// state; the caller overwrites the field it changes.
func transitionEntry(o *repository.Order, actingUser uuid.UUID, note string) *repository.HistoryEntry {
	prevStage := o.CurrentStage
	prevStatus := o.CurrentStatus
	return &repository.HistoryEntry{
		OrderID:        o.ID,
		PreviousStage:  &prevStage,
		NewStage:       o.CurrentStage,
		PreviousStatus: &prevStatus,
		NewStatus:      o.CurrentStatus,
		UserID:         actingUser,
		Note:           note,
	}
}

func toResponse(o repository.Order) transport.OrderResponse {
	return transport.OrderResponse{
		ID:                o.ID,
		Code:              o.Code,
		Description:       o.Description,
		Quantity:          o.Quantity,
		ClientName:        o.ClientName,
		Size:              o.Size,
		CurrentStage:      string(o.CurrentStage),
		CurrentStatus:     string(o.CurrentStatus),
		AssignedUserID:    o.AssignedUserID,
		EstimatedDelivery: o.EstimatedDelivery,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func toHistoryResponse(e repository.HistoryEntry) transport.HistoryEntryResponse {
	resp := transport.HistoryEntryResponse{
		ID:        e.ID,
		NewStage:  string(e.NewStage),
		NewStatus: string(e.NewStatus),
		UserID:    e.UserID,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
	if e.PreviousStage != nil {
		v := string(*e.PreviousStage)
		resp.PreviousStage = &v
	}
	if e.PreviousStatus != nil {
		v := string(*e.PreviousStatus)
		resp.PreviousStatus = &v
	}
	return resp
}
