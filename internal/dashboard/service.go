// Package dashboard derives summary statistics from current order state.
// Every snapshot is recomputed from the database on demand; the aggregator
// holds no state and has no side effects.
package dashboard

import (
	"context"
	"time"

	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/platform/logger"
)

// Service computes dashboard snapshots.
type Service struct {
	reader Reader
	log    *logger.Logger
}

// NewService creates the dashboard aggregator.
func NewService(reader Reader, log *logger.Logger) *Service {
	return &Service{reader: reader, log: log}
}

// GetSnapshot computes the current dashboard view. Stage buckets follow the
// workstation sequence and include zero counts, so the shape is stable for
// clients regardless of the order population.
func (s *Service) GetSnapshot(ctx context.Context) (Snapshot, error) {
	counts, err := s.reader.CountByStage(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	stopped, err := s.reader.StoppedOrders(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	workloads, err := s.reader.WorkloadByUser(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	byStage := make([]StageCount, 0, len(lifecycle.Stages()))
	for _, stage := range lifecycle.Stages() {
		byStage = append(byStage, StageCount{
			Stage: string(stage),
			Count: counts[stage],
		})
	}

	if stopped == nil {
		stopped = []StoppedOrder{}
	}
	if workloads == nil {
		workloads = []UserWorkload{}
	}

	return Snapshot{
		OperationsByStage: byStage,
		StoppedOperations: stopped,
		WorkloadByUser:    workloads,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}
