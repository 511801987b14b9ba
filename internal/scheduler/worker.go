package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"prodline_backend/internal/events"
	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/platform/config"
	"prodline_backend/platform/logger"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	pool   *pgxpool.Pool
	bus    events.Bus
	cfg    config.SchedulerConfig
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		pool:   pool,
		bus:    bus,
		cfg:    cfg,
		log:    log,
	}

	mux.HandleFunc(TaskStalledScan, w.handleStalledScan)

	return w, nil
}

// Run blocks until the server is shut down.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleStalledScan flags orders that have sat in the stopped status past
// the threshold. Each hit publishes an event; the scan itself mutates
// nothing, so re-running it is harmless.
func (w *Worker) handleStalledScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStalledScanPayload(task)
	if err != nil {
		return err
	}

	threshold := payload.StalledAfter
	if threshold <= 0 {
		threshold = w.cfg.GetStalledAfter()
	}
	cutoff := time.Now().Add(-threshold)

	rows, err := w.pool.Query(ctx, `
		SELECT id, code, current_stage, current_status
		FROM production_orders
		WHERE current_status = 'stopped' AND updated_at < $1
		ORDER BY updated_at ASC`, cutoff)
	if err != nil {
		return fmt.Errorf("scan stalled orders: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			id            int64
			code          string
			stage, status string
		)
		if err := rows.Scan(&id, &code, &stage, &status); err != nil {
			return fmt.Errorf("scan stalled order row: %w", err)
		}

		w.bus.Publish(ctx, events.OrderStalled{
			BaseEvent: events.NewBaseEvent(),
			OrderID:   id,
			Code:      code,
			Stage:     lifecycle.Stage(stage),
			Status:    lifecycle.Status(status),
		})
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan stalled orders: %w", err)
	}

	w.log.Info("stalled order scan complete", "threshold", threshold.String(), "flagged", count)
	return nil
}
