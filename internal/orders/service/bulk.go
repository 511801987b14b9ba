package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/internal/orders/transport"
	"prodline_backend/platform/apperr"
)

// bulkConcurrency bounds how many orders a bulk operation touches at once.
// Each order still serializes on its own row lock.
const bulkConcurrency = 8

// BulkUpdateStatus applies one status change to a set of orders. Every id
// goes through the same validation path as UpdateStatus, independently:
// one order's rejection never aborts the others. Failures are data in the
// result, not errors.
func (s *Service) BulkUpdateStatus(ctx context.Context, req transport.BulkUpdateStatusRequest, actingUser uuid.UUID) (transport.BulkUpdateStatusResponse, error) {
	if len(req.OrderIDs) == 0 {
		return transport.BulkUpdateStatusResponse{}, apperr.Validation("no order ids provided")
	}
	// An unknown target status fails the whole request; per-order outcomes
	// only carry conditions of the individual order.
	if _, err := lifecycle.ParseStatus(req.Status); err != nil {
		return transport.BulkUpdateStatusResponse{}, err
	}

	type outcome struct {
		orderID int64
		err     error
	}
	outcomes := make([]outcome, len(req.OrderIDs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)

	for i, id := range req.OrderIDs {
		g.Go(func() error {
			_, err := s.UpdateStatus(gctx, id, req.Status, req.Note, actingUser)
			mu.Lock()
			outcomes[i] = outcome{orderID: id, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := transport.BulkUpdateStatusResponse{
		Succeeded: make([]int64, 0, len(req.OrderIDs)),
		Failed:    make([]transport.BulkFailure, 0),
	}
	for _, o := range outcomes {
		if o.err != nil {
			resp.Failed = append(resp.Failed, transport.BulkFailure{OrderID: o.orderID, Reason: o.err.Error()})
			continue
		}
		resp.Succeeded = append(resp.Succeeded, o.orderID)
	}

	s.log.Info("bulk status update",
		"status", req.Status,
		"succeeded", len(resp.Succeeded),
		"failed", len(resp.Failed),
	)
	return resp, nil
}
