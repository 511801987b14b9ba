package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"prodline_backend/internal/events"
	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/internal/orders/repository"
	"prodline_backend/internal/orders/transport"
	"prodline_backend/platform/apperr"
	"prodline_backend/platform/logger"
)

// fakeRepo is an in-memory Repository honoring the same contracts as the
// PostgreSQL implementation: atomic order+ledger writes, code uniqueness,
// and per-order serialization (one coarse lock stands in for row locks).
type fakeRepo struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]repository.Order
	history map[int64][]repository.HistoryEntry
	clock   time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:  1,
		orders:  make(map[int64]repository.Order),
		history: make(map[int64][]repository.HistoryEntry),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return repository.Order{}, apperr.NotFound("production order not found")
	}
	return o, nil
}

func (r *fakeRepo) GetByCode(_ context.Context, code string) (repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Code == code {
			return o, nil
		}
	}
	return repository.Order{}, apperr.NotFound("production order not found")
}

func (r *fakeRepo) List(_ context.Context, filter repository.ListFilter) ([]repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Order
	for _, o := range r.orders {
		if filter.Stage != nil && o.CurrentStage != *filter.Stage {
			continue
		}
		if filter.Status != nil && o.CurrentStatus != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeRepo) History(_ context.Context, orderID int64) ([]repository.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return nil, apperr.NotFound("production order not found")
	}
	return append([]repository.HistoryEntry(nil), r.history[orderID]...), nil
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Code == params.Code {
			return repository.Order{}, apperr.DuplicateCode("an order with this code already exists")
		}
	}

	now := r.tick()
	order := repository.Order{
		ID:                r.nextID,
		Code:              params.Code,
		Description:       params.Description,
		Quantity:          params.Quantity,
		ClientName:        params.ClientName,
		Size:              params.Size,
		CurrentStage:      lifecycle.StageCutting,
		CurrentStatus:     lifecycle.StatusInProduction,
		EstimatedDelivery: params.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.nextID++
	r.orders[order.ID] = order
	r.history[order.ID] = []repository.HistoryEntry{{
		ID:        1,
		OrderID:   order.ID,
		NewStage:  order.CurrentStage,
		NewStatus: order.CurrentStatus,
		UserID:    params.CreatedBy,
		Note:      "order created",
		CreatedAt: now,
	}}
	return order, nil
}

func (r *fakeRepo) Mutate(_ context.Context, id int64, fn repository.MutateFunc) (repository.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return repository.Order{}, apperr.NotFound("production order not found")
	}

	before := o
	entry, err := fn(&o)
	if err != nil {
		return repository.Order{}, err
	}
	if entry == nil && o == before {
		return o, nil
	}

	now := r.tick()
	o.UpdatedAt = now
	r.orders[id] = o

	if entry != nil {
		entry.ID = int64(len(r.history[id]) + 1)
		entry.CreatedAt = now
		r.history[id] = append(r.history[id], *entry)
	}
	return o, nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.NotFound("production order not found")
	}
	if len(r.history[id]) != 1 {
		return apperr.BusinessRule("cannot delete an order already in progress")
	}
	delete(r.orders, id)
	delete(r.history, id)
	return nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.Publish(nil, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeUsers struct {
	known map[uuid.UUID]bool
}

func (u fakeUsers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return u.known[id], nil
}

func newTestService() (*Service, *fakeRepo, *recordingBus, uuid.UUID) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	actor := uuid.New()
	users := fakeUsers{known: map[uuid.UUID]bool{actor: true}}
	svc := New(repo, users, bus, logger.New("development"))
	return svc, repo, bus, actor
}

func createOrder(t *testing.T, svc *Service, actor uuid.UUID, code string) transport.OrderResponse {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Code:              code,
		Description:       "summer dress batch",
		Quantity:          40,
		ClientName:        "Atelier Nord",
		Size:              "M",
		EstimatedDelivery: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, actor)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestAdvanceStageReachesPackagingThenFails(t *testing.T) {
	svc, repo, _, actor := newTestService()
	ctx := context.Background()
	order := createOrder(t, svc, actor, "PO-1001")

	want := []string{"sewing", "review", "packaging"}
	for _, expected := range want {
		updated, err := svc.AdvanceStage(ctx, order.ID, actor)
		if err != nil {
			t.Fatalf("advance to %s: %v", expected, err)
		}
		if updated.CurrentStage != expected {
			t.Fatalf("expected stage %s, got %s", expected, updated.CurrentStage)
		}
	}

	_, err := svc.AdvanceStage(ctx, order.ID, actor)
	if !apperr.Is(err, apperr.KindTerminalState) {
		t.Fatalf("expected terminal state error, got %v", err)
	}

	// Creation plus three advances: four ledger rows, no row for the rejection.
	if got := len(repo.history[order.ID]); got != 4 {
		t.Fatalf("expected 4 history entries, got %d", got)
	}
}

func TestLedgerReplayReconstructsCurrentState(t *testing.T) {
	svc, _, _, actor := newTestService()
	ctx := context.Background()
	order := createOrder(t, svc, actor, "PO-1002")

	if _, err := svc.AdvanceStage(ctx, order.ID, actor); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, "paused", "fabric delay", actor); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := svc.ChangeStage(ctx, order.ID, "cutting", "recut after QC failure", actor); err != nil {
		t.Fatalf("override: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, "in_production", "fabric arrived", actor); err != nil {
		t.Fatalf("resume: %v", err)
	}

	history, err := svc.GetHistory(ctx, order.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	// One ledger row per lifecycle mutation, creation included.
	if len(history.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(history.Entries))
	}
	if history.Entries[0].PreviousStage != nil || history.Entries[0].PreviousStatus != nil {
		t.Fatal("creation record must have null previous stage and status")
	}
	for _, e := range history.Entries[1:] {
		if e.PreviousStage == nil || e.PreviousStatus == nil {
			t.Fatal("only the creation record may have null previous values")
		}
	}

	// Replaying the ledger in order must land on the current (stage, status).
	stage, status := "", ""
	for _, e := range history.Entries {
		stage, status = e.NewStage, e.NewStatus
	}

	current, err := svc.GetOrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if stage != current.CurrentStage || status != current.CurrentStatus {
		t.Fatalf("replay ended at (%s, %s), order is at (%s, %s)",
			stage, status, current.CurrentStage, current.CurrentStatus)
	}
}

func TestUpdateStatusTerminalIsAbsorbing(t *testing.T) {
	svc, repo, bus, actor := newTestService()
	ctx := context.Background()
	order := createOrder(t, svc, actor, "PO-1003")

	if _, err := svc.UpdateStatus(ctx, order.ID, "cancelled", "client withdrew", actor); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, target := range []string{"in_production", "stopped", "completed"} {
		_, err := svc.UpdateStatus(ctx, order.ID, target, "", actor)
		if !apperr.Is(err, apperr.KindInvalidTransition) {
			t.Fatalf("expected invalid transition for %s, got %v", target, err)
		}
	}

	entriesBefore := len(repo.history[order.ID])
	eventsBefore := len(bus.published)
	updatedBefore := repo.orders[order.ID].UpdatedAt

	// Re-setting the same terminal value is an idempotent no-op.
	updated, err := svc.UpdateStatus(ctx, order.ID, "cancelled", "", actor)
	if err != nil {
		t.Fatalf("idempotent re-set: %v", err)
	}
	if updated.CurrentStatus != "cancelled" {
		t.Fatalf("expected status to remain cancelled, got %s", updated.CurrentStatus)
	}
	if len(repo.history[order.ID]) != entriesBefore {
		t.Fatal("idempotent re-set must not append a ledger entry")
	}
	if len(bus.published) != eventsBefore {
		t.Fatal("idempotent re-set must not publish a transition event")
	}
	if !updated.UpdatedAt.Equal(updatedBefore) {
		t.Fatal("idempotent re-set must not move the modification timestamp")
	}
}

func TestCreateOrderDuplicateCodeLeavesNothingBehind(t *testing.T) {
	svc, repo, _, actor := newTestService()
	createOrder(t, svc, actor, "PO-2001")

	ordersBefore := len(repo.orders)
	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Code:              "PO-2001",
		Quantity:          5,
		EstimatedDelivery: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, actor)
	if !apperr.Is(err, apperr.KindDuplicateCode) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}
	if len(repo.orders) != ordersBefore {
		t.Fatal("failed create must not leave an order behind")
	}
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	svc, _, _, actor := newTestService()
	_, err := svc.CreateOrder(context.Background(), transport.CreateOrderRequest{
		Code:              "PO-2002",
		Quantity:          0,
		EstimatedDelivery: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, actor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteOrderOnlyWhilePristine(t *testing.T) {
	svc, _, _, actor := newTestService()
	ctx := context.Background()

	pristine := createOrder(t, svc, actor, "PO-3001")
	if err := svc.DeleteOrder(ctx, pristine.ID); err != nil {
		t.Fatalf("delete pristine order: %v", err)
	}

	touched := createOrder(t, svc, actor, "PO-3002")
	if _, err := svc.AdvanceStage(ctx, touched.ID, actor); err != nil {
		t.Fatalf("advance: %v", err)
	}
	err := svc.DeleteOrder(ctx, touched.ID)
	if !apperr.Is(err, apperr.KindBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
}

func TestChangeStageRequiresNote(t *testing.T) {
	svc, _, _, actor := newTestService()
	order := createOrder(t, svc, actor, "PO-4001")

	_, err := svc.ChangeStage(context.Background(), order.ID, "review", "", actor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing note, got %v", err)
	}
}

func TestChangeStageAllowsBackwardMoveWithNote(t *testing.T) {
	svc, repo, _, actor := newTestService()
	ctx := context.Background()
	order := createOrder(t, svc, actor, "PO-4002")

	if _, err := svc.AdvanceStage(ctx, order.ID, actor); err != nil {
		t.Fatalf("advance: %v", err)
	}
	updated, err := svc.ChangeStage(ctx, order.ID, "cutting", "recut", actor)
	if err != nil {
		t.Fatalf("backward override: %v", err)
	}
	if updated.CurrentStage != "cutting" {
		t.Fatalf("expected cutting, got %s", updated.CurrentStage)
	}

	entries := repo.history[order.ID]
	last := entries[len(entries)-1]
	if last.Note != "recut" {
		t.Fatalf("expected override note on the ledger entry, got %q", last.Note)
	}
	if last.PreviousStage == nil || *last.PreviousStage != lifecycle.StageSewing {
		t.Fatal("expected previous stage sewing on the override entry")
	}
}

func TestAssignTaskAppendsNoHistory(t *testing.T) {
	svc, repo, _, actor := newTestService()
	order := createOrder(t, svc, actor, "PO-5001")

	before := repo.orders[order.ID].UpdatedAt
	updated, err := svc.AssignTask(context.Background(), order.ID, actor)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.AssignedUserID == nil || *updated.AssignedUserID != actor {
		t.Fatal("expected assigned user to be set")
	}
	if len(repo.history[order.ID]) != 1 {
		t.Fatal("assignment must not append a ledger entry")
	}
	if !updated.UpdatedAt.After(before) {
		t.Fatal("assignment must bump the modification timestamp")
	}
}

func TestAssignTaskUnknownUser(t *testing.T) {
	svc, _, _, actor := newTestService()
	order := createOrder(t, svc, actor, "PO-5002")

	_, err := svc.AssignTask(context.Background(), order.ID, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAdvanceStageUnknownOrder(t *testing.T) {
	svc, _, _, actor := newTestService()
	_, err := svc.AdvanceStage(context.Background(), 999, actor)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestTransitionsPublishEvents(t *testing.T) {
	svc, _, bus, actor := newTestService()
	ctx := context.Background()
	order := createOrder(t, svc, actor, "PO-6001")

	if _, err := svc.AdvanceStage(ctx, order.ID, actor); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if len(bus.published) != 2 {
		t.Fatalf("expected 2 events (created + transitioned), got %d", len(bus.published))
	}
	transitioned, ok := bus.published[1].(events.OrderTransitioned)
	if !ok {
		t.Fatalf("expected OrderTransitioned, got %T", bus.published[1])
	}
	if transitioned.OrderID != order.ID || transitioned.Stage != lifecycle.StageSewing {
		t.Fatalf("unexpected event payload: %+v", transitioned)
	}
}

func TestBulkUpdateStatusRejectsUnknownStatusUpfront(t *testing.T) {
	svc, repo, _, actor := newTestService()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		order := createOrder(t, svc, actor, fmt.Sprintf("PO-80%02d", i))
		ids = append(ids, order.ID)
	}

	_, err := svc.BulkUpdateStatus(ctx, transport.BulkUpdateStatusRequest{
		OrderIDs: ids,
		Status:   "melting",
	}, actor)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The rejection happens before any order is touched.
	for _, id := range ids {
		if got := len(repo.history[id]); got != 1 {
			t.Fatalf("order %d has %d ledger entries, want only the creation record", id, got)
		}
	}
}

func TestBulkUpdateStatusPartialFailure(t *testing.T) {
	svc, _, _, actor := newTestService()
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		order := createOrder(t, svc, actor, fmt.Sprintf("PO-70%02d", i))
		ids = append(ids, order.ID)
	}

	// Order 2 is already terminal; its rejection must not abort 1 and 3.
	if _, err := svc.UpdateStatus(ctx, ids[1], "cancelled", "client withdrew", actor); err != nil {
		t.Fatalf("cancel order 2: %v", err)
	}

	result, err := svc.BulkUpdateStatus(ctx, transport.BulkUpdateStatusRequest{
		OrderIDs: ids,
		Status:   "stopped",
		Note:     "machine breakdown",
	}, actor)
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}

	if len(result.Succeeded) != 2 {
		t.Fatalf("expected 2 succeeded, got %v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].OrderID != ids[1] {
		t.Fatalf("expected order %d to fail, got %v", ids[1], result.Failed)
	}

	for _, id := range []int64{ids[0], ids[2]} {
		order, err := svc.GetOrderByID(ctx, id)
		if err != nil {
			t.Fatalf("get order %d: %v", id, err)
		}
		if order.CurrentStatus != "stopped" {
			t.Fatalf("expected order %d stopped, got %s", id, order.CurrentStatus)
		}
	}
}
