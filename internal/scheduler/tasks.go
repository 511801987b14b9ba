package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskStalledScan = "orders.stalled_scan"

// StalledScanPayload carries the scan parameters so a manually enqueued
// scan can override the configured threshold.
type StalledScanPayload struct {
	StalledAfter time.Duration `json:"stalledAfter"`
}

func NewStalledScanTask(payload StalledScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStalledScan, data), nil
}

func ParseStalledScanPayload(task *asynq.Task) (StalledScanPayload, error) {
	var payload StalledScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StalledScanPayload{}, err
	}
	return payload, nil
}
