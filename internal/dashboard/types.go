package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// StageCount is the number of active orders at one workstation.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// StoppedOrder is one halted order surfaced on the dashboard.
type StoppedOrder struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Description       string    `json:"description"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

// UserWorkload is the count of active orders assigned to one user.
// UserID is nil for the unassigned bucket.
type UserWorkload struct {
	UserID *uuid.UUID `json:"userId"`
	Count  int        `json:"count"`
}

// Snapshot is the dashboard payload, recomputed on every request.
type Snapshot struct {
	OperationsByStage []StageCount   `json:"operationsByStage"`
	StoppedOperations []StoppedOrder `json:"stoppedOperations"`
	WorkloadByUser    []UserWorkload `json:"workloadByUser"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}
