package exports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"

	"prodline_backend/internal/orders/lifecycle"
	"prodline_backend/internal/orders/repository"
)

func TestWriteOrdersCSV(t *testing.T) {
	userID := uuid.New()
	orders := []repository.Order{
		{
			ID:                1,
			Code:              "OP-1",
			Description:       "summer batch, 200 units",
			Quantity:          200,
			ClientName:        "Acme Textiles",
			Size:              "M",
			CurrentStage:      lifecycle.StageSewing,
			CurrentStatus:     lifecycle.StatusInProduction,
			AssignedUserID:    &userID,
			EstimatedDelivery: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			CreatedAt:         time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:            2,
			Code:          "OP-2",
			Quantity:      50,
			CurrentStage:  lifecycle.StageCutting,
			CurrentStatus: lifecycle.StatusStopped,
		},
	}

	var buf bytes.Buffer
	if err := WriteOrdersCSV(&buf, orders); err != nil {
		t.Fatalf("WriteOrdersCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[0][1] != "code" {
		t.Errorf("header[1] = %q, want code", records[0][1])
	}
	if records[1][1] != "OP-1" || records[1][6] != "sewing" || records[1][8] != userID.String() {
		t.Errorf("first row = %v", records[1])
	}
	if records[2][8] != "" {
		t.Errorf("unassigned order should have empty assigned_user, got %q", records[2][8])
	}
}

func TestWriteHistoryCSVMarksCreationRecord(t *testing.T) {
	userID := uuid.New()
	prevStage := lifecycle.StageCutting
	prevStatus := lifecycle.StatusInProduction
	entries := []repository.HistoryEntry{
		{
			ID:        1,
			OrderID:   9,
			NewStage:  lifecycle.StageCutting,
			NewStatus: lifecycle.StatusInProduction,
			UserID:    userID,
			Note:      "order created",
			CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:             2,
			OrderID:        9,
			PreviousStage:  &prevStage,
			NewStage:       lifecycle.StageSewing,
			PreviousStatus: &prevStatus,
			NewStatus:      lifecycle.StatusInProduction,
			UserID:         userID,
			CreatedAt:      time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteHistoryCSV(&buf, entries); err != nil {
		t.Fatalf("WriteHistoryCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}

	// Creation record has empty previous columns.
	if records[1][2] != "" || records[1][4] != "" {
		t.Errorf("creation row previous columns = %q, %q, want empty", records[1][2], records[1][4])
	}
	if records[2][2] != "cutting" || records[2][3] != "sewing" {
		t.Errorf("transition row = %v", records[2])
	}
}
