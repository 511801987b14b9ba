// Package transport defines the wire DTOs for the orders module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateOrderRequest is the payload for creating a production order.
type CreateOrderRequest struct {
	Code              string    `json:"code" binding:"required" validate:"required,min=1,max=50"`
	Description       string    `json:"description" validate:"max=500"`
	Quantity          int       `json:"quantity" binding:"required" validate:"required,gt=0"`
	ClientName        string    `json:"clientName" validate:"max=200"`
	Size              string    `json:"size" validate:"max=20"`
	EstimatedDelivery time.Time `json:"estimatedDelivery" binding:"required"`
}

// ChangeStageRequest is the payload for the administrative stage override.
// The note is mandatory: every override must be ledgered with a reason.
type ChangeStageRequest struct {
	Stage string `json:"stage" binding:"required"`
	Note  string `json:"note" binding:"required" validate:"required,min=1,max=500"`
}

// UpdateStatusRequest is the payload for an operational status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// AssignTaskRequest is the payload for assigning an order to a user.
type AssignTaskRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
}

// BulkUpdateStatusRequest applies one status change to a set of orders.
type BulkUpdateStatusRequest struct {
	OrderIDs []int64 `json:"orderIds" binding:"required" validate:"required,min=1,max=500"`
	Status   string  `json:"status" binding:"required"`
	Note     string  `json:"note" validate:"max=500"`
}

// ListOrdersRequest carries the optional, AND-combined list filters.
type ListOrdersRequest struct {
	Stage          string     `form:"stage"`
	Status         string     `form:"status"`
	AssignedUserID string     `form:"assignedUserId"`
	CreatedFrom    *time.Time `form:"from" time_format:"2006-01-02"`
	CreatedTo      *time.Time `form:"to" time_format:"2006-01-02"`
	ClientName     string     `form:"client"`
	Size           string     `form:"size"`
}

// OrderResponse is the wire representation of a production order.
type OrderResponse struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	Description       string     `json:"description"`
	Quantity          int        `json:"quantity"`
	ClientName        string     `json:"clientName,omitempty"`
	Size              string     `json:"size,omitempty"`
	CurrentStage      string     `json:"currentStage"`
	CurrentStatus     string     `json:"currentStatus"`
	AssignedUserID    *uuid.UUID `json:"assignedUserId,omitempty"`
	EstimatedDelivery time.Time  `json:"estimatedDelivery"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// OrderListResponse wraps a list of orders.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Total int             `json:"total"`
}

// HistoryEntryResponse is one row of an order's transition ledger.
// Previous stage/status are null only on the creation record.
type HistoryEntryResponse struct {
	ID             int64     `json:"id"`
	PreviousStage  *string   `json:"previousStage"`
	NewStage       string    `json:"newStage"`
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	UserID         uuid.UUID `json:"userId"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HistoryResponse wraps an order's ledger.
type HistoryResponse struct {
	OrderID int64                  `json:"orderId"`
	Entries []HistoryEntryResponse `json:"entries"`
}

// BulkFailure is one rejected order in a bulk status change.
type BulkFailure struct {
	OrderID int64  `json:"orderId"`
	Reason  string `json:"reason"`
}

// BulkUpdateStatusResponse aggregates per-order outcomes. Callers must not
// assume all-or-nothing semantics.
type BulkUpdateStatusResponse struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}
