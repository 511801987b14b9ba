// Package exports renders order data as downloadable CSV and PDF files.
package exports

import (
	"encoding/csv"
	"io"
	"strconv"

	"prodline_backend/internal/orders/repository"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteOrdersCSV renders the order list, one row per order.
func WriteOrdersCSV(w io.Writer, orders []repository.Order) error {
	writer := csv.NewWriter(w)

	header := []string{
		"id", "code", "description", "quantity", "client", "size",
		"stage", "status", "assigned_user", "estimated_delivery", "created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range orders {
		assigned := ""
		if o.AssignedUserID != nil {
			assigned = o.AssignedUserID.String()
		}
		record := []string{
			strconv.FormatInt(o.ID, 10),
			o.Code,
			o.Description,
			strconv.Itoa(o.Quantity),
			o.ClientName,
			o.Size,
			string(o.CurrentStage),
			string(o.CurrentStatus),
			assigned,
			o.EstimatedDelivery.Format("2006-01-02"),
			o.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteHistoryCSV renders an order's transition ledger, oldest first.
func WriteHistoryCSV(w io.Writer, entries []repository.HistoryEntry) error {
	writer := csv.NewWriter(w)

	header := []string{
		"id", "order_id", "previous_stage", "new_stage",
		"previous_status", "new_status", "user_id", "note", "created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range entries {
		prevStage, prevStatus := "", ""
		if e.PreviousStage != nil {
			prevStage = string(*e.PreviousStage)
		}
		if e.PreviousStatus != nil {
			prevStatus = string(*e.PreviousStatus)
		}
		record := []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.OrderID, 10),
			prevStage,
			string(e.NewStage),
			prevStatus,
			string(e.NewStatus),
			e.UserID.String(),
			e.Note,
			e.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
