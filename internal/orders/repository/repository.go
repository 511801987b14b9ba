package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/platform/apperr"
)

const orderNotFoundMessage = "production order not found"

const pgUniqueViolation = "23505"

const orderColumns = `id, code, description, quantity, client_name, size,
		current_stage, current_status, assigned_user_id, estimated_delivery, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new production orders repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a production order by its ID.
func (r *Repo) GetByID(ctx context.Context, id int64) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, query, id), "get order by id")
}

// GetByCode retrieves a production order by its unique code.
func (r *Repo) GetByCode(ctx context.Context, code string) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE code = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, query, code), "get order by code")
}

// List retrieves production orders matching the filter, newest first.
// All filter fields are optional and combined with AND.
func (r *Repo) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders WHERE 1=1`
	args := []interface{}{}

	addArg := func(clause string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.Stage != nil {
		addArg(" AND current_stage = $%d", *filter.Stage)
	}
	if filter.Status != nil {
		addArg(" AND current_status = $%d", *filter.Status)
	}
	if filter.AssignedUserID != nil {
		addArg(" AND assigned_user_id = $%d", *filter.AssignedUserID)
	}
	if filter.CreatedFrom != nil {
		addArg(" AND created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		addArg(" AND created_at <= $%d", *filter.CreatedTo)
	}
	if filter.ClientName != "" {
		addArg(" AND client_name ILIKE $%d", "%"+filter.ClientName+"%")
	}
	if filter.Size != "" {
		addArg(" AND size = $%d", filter.Size)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Code, &o.Description, &o.Quantity, &o.ClientName, &o.Size,
			&o.CurrentStage, &o.CurrentStatus, &o.AssignedUserID, &o.EstimatedDelivery,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// History retrieves the order's full transition ledger, oldest first.
// The creation record is recognizable by its NULL previous stage/status.
func (r *Repo) History(ctx context.Context, orderID int64) ([]HistoryEntry, error) {
	if _, err := r.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, previous_stage, new_stage, previous_status, new_status, user_id, note, created_at
		FROM production_order_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.PreviousStage, &e.NewStage,
			&e.PreviousStatus, &e.NewStatus, &e.UserID, &e.Note, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create inserts the order and its synthetic creation ledger row in one
// transaction. A code collision maps to a duplicate-code conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Order, error) {
	var order Order
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO production_orders (code, description, quantity, client_name, size, current_stage, current_status, estimated_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns,
		params.Code, params.Description, params.Quantity, params.ClientName, params.Size,
		"cutting", "in_production", params.EstimatedDelivery,
	).Scan(
		&order.ID, &order.Code, &order.Description, &order.Quantity, &order.ClientName, &order.Size,
		&order.CurrentStage, &order.CurrentStatus, &order.AssignedUserID, &order.EstimatedDelivery,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Order{}, apperr.DuplicateCode("an order with this code already exists")
		}
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	// The creation record: NULL previous values signal this is the first entry.
	if _, err = tx.Exec(ctx, `
		INSERT INTO production_order_history (order_id, previous_stage, new_stage, previous_status, new_status, user_id, note, created_at)
		VALUES ($1, NULL, $2, NULL, $3, $4, $5, $6)`,
		order.ID, order.CurrentStage, order.CurrentStatus, params.CreatedBy, "order created", order.CreatedAt,
	); err != nil {
		return Order{}, fmt.Errorf("append creation history: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Mutate loads the order under FOR UPDATE, applies fn, and persists the
// updated order plus the optional ledger entry as one atomic unit. When fn
// returns no entry and leaves the order unchanged, nothing is written.
// Concurrent transitions on the same order serialize on the row lock, so an
// order update without its matching ledger row is never observable.
func (r *Repo) Mutate(ctx context.Context, id int64, fn MutateFunc) (Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var order Order
	order, err = r.scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM production_orders WHERE id = $1 FOR UPDATE`, id,
	), "lock order")
	if err != nil {
		return Order{}, err
	}

	before := order
	var entry *HistoryEntry
	entry, err = fn(&order)
	if err != nil {
		return Order{}, err
	}

	// A closure that changed nothing and ledgers nothing leaves the row
	// untouched, updated_at included.
	if entry == nil && order == before {
		err = tx.Commit(ctx)
		return order, err
	}

	now := time.Now().UTC()
	order.UpdatedAt = now

	if _, err = tx.Exec(ctx, `
		UPDATE production_orders
		SET current_stage = $2, current_status = $3, assigned_user_id = $4, updated_at = $5
		WHERE id = $1`,
		order.ID, order.CurrentStage, order.CurrentStatus, order.AssignedUserID, now,
	); err != nil {
		return Order{}, fmt.Errorf("update order: %w", err)
	}

	if entry != nil {
		if _, err = tx.Exec(ctx, `
			INSERT INTO production_order_history (order_id, previous_stage, new_stage, previous_status, new_status, user_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID, entry.PreviousStage, entry.NewStage, entry.PreviousStatus, entry.NewStatus,
			entry.UserID, entry.Note, now,
		); err != nil {
			return Order{}, fmt.Errorf("append history: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Delete removes the order only while its ledger holds exactly the creation
// record; anything more means the order is already in progress.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = r.scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM production_orders WHERE id = $1 FOR UPDATE`, id,
	), "lock order"); err != nil {
		return err
	}

	var historyCount int
	if err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM production_order_history WHERE order_id = $1`, id,
	).Scan(&historyCount); err != nil {
		return fmt.Errorf("count history: %w", err)
	}

	if historyCount != 1 {
		err = apperr.BusinessRule("cannot delete an order already in progress")
		return err
	}

	// History rows cascade with the order.
	if _, err = tx.Exec(ctx, `DELETE FROM production_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repo) scanOrder(row pgx.Row, op string) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Code, &o.Description, &o.Quantity, &o.ClientName, &o.Size,
		&o.CurrentStage, &o.CurrentStatus, &o.AssignedUserID, &o.EstimatedDelivery,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMessage)
		}
		return Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}
