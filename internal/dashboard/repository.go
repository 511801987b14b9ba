package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/internal/orders/lifecycle"
)

// Reader runs the dashboard aggregate queries. All queries are plain
// read-committed reads over current order state; nothing is cached.
type Reader interface {
	CountByStage(ctx context.Context) (map[lifecycle.Stage]int, error)
	StoppedOrders(ctx context.Context) ([]StoppedOrder, error)
	WorkloadByUser(ctx context.Context) ([]UserWorkload, error)
}

type pgReader struct {
	pool *pgxpool.Pool
}

// NewReader creates a dashboard reader backed by Postgres.
func NewReader(pool *pgxpool.Pool) Reader {
	return &pgReader{pool: pool}
}

// terminalStatusFilter excludes orders that reached an absorbing status.
const terminalStatusFilter = `current_status NOT IN ('completed', 'finished', 'cancelled')`

func (r *pgReader) CountByStage(ctx context.Context) (map[lifecycle.Stage]int, error) {
	query := `
		SELECT current_stage, COUNT(*)
		FROM production_orders
		WHERE ` + terminalStatusFilter + `
		GROUP BY current_stage`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count orders by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[lifecycle.Stage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[lifecycle.Stage(stage)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count orders by stage: %w", err)
	}
	return counts, nil
}

func (r *pgReader) StoppedOrders(ctx context.Context) ([]StoppedOrder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, description, estimated_delivery
		FROM production_orders
		WHERE current_status = 'stopped'
		ORDER BY estimated_delivery ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list stopped orders: %w", err)
	}
	defer rows.Close()

	var stopped []StoppedOrder
	for rows.Next() {
		var o StoppedOrder
		if err := rows.Scan(&o.ID, &o.Code, &o.Description, &o.EstimatedDelivery); err != nil {
			return nil, fmt.Errorf("scan stopped order: %w", err)
		}
		stopped = append(stopped, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stopped orders: %w", err)
	}
	return stopped, nil
}

func (r *pgReader) WorkloadByUser(ctx context.Context) ([]UserWorkload, error) {
	query := `
		SELECT assigned_user_id, COUNT(*)
		FROM production_orders
		WHERE ` + terminalStatusFilter + `
		GROUP BY assigned_user_id
		ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("workload by user: %w", err)
	}
	defer rows.Close()

	var workloads []UserWorkload
	for rows.Next() {
		var w UserWorkload
		if err := rows.Scan(&w.UserID, &w.Count); err != nil {
			return nil, fmt.Errorf("scan user workload: %w", err)
		}
		workloads = append(workloads, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workload by user: %w", err)
	}
	return workloads, nil
}
