// Package pdf generates production order reports using maroto/v2. A report
// carries the order's current state and its full transition ledger so a
// floor supervisor can archive or hand off a paper trail.
package pdf

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}    // near-black
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128} // gray-500
	colorAccent    = &props.Color{Red: 37, Green: 99, Blue: 235}   // blue-600
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249} // slate-100
	colorTableAlt  = &props.Color{Red: 249, Green: 250, Blue: 251} // gray-50
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240} // slate-200
)

// HistoryRow is one ledger entry rendered in the report.
type HistoryRow struct {
	At             time.Time
	PreviousStage  string // empty on the creation record
	NewStage       string
	PreviousStatus string
	NewStatus      string
	Note           string
}

// OrderReportData holds all data needed to generate an order report.
type OrderReportData struct {
	Code              string
	Description       string
	Quantity          int
	ClientName        string
	Size              string
	CurrentStage      string
	CurrentStatus     string
	EstimatedDelivery time.Time
	CreatedAt         time.Time
	History           []HistoryRow
}

// GenerateOrderReport creates a PDF document for the given order.
func GenerateOrderReport(data OrderReportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	m.AddRows(buildHeader(data)...)
	m.AddRows(row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	}))
	m.AddRows(row.New(6))

	m.AddRows(buildSummaryBlock(data)...)
	m.AddRows(row.New(8))

	m.AddRows(buildHistoryTable(data)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func buildHeader(data OrderReportData) []core.Row {
	titleCol := col.New(8).Add(
		text.New("PRODUCTION ORDER", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Color: colorAccent,
		}),
		text.New(data.Code, props.Text{
			Size:  12,
			Color: colorSecondary,
			Top:   10,
		}),
	)

	stateCol := col.New(4).Add(
		text.New(data.CurrentStage, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
			Color: colorPrimary,
		}),
		text.New(data.CurrentStatus, props.Text{
			Size:  11,
			Align: align.Right,
			Color: colorSecondary,
			Top:   8,
		}),
	)

	return []core.Row{row.New(18).Add(titleCol, stateCol)}
}

func buildSummaryBlock(data OrderReportData) []core.Row {
	pairs := []struct{ label, value string }{
		{"Description", data.Description},
		{"Quantity", fmt.Sprintf("%d", data.Quantity)},
		{"Client", data.ClientName},
		{"Size", data.Size},
		{"Estimated delivery", data.EstimatedDelivery.Format("2006-01-02")},
		{"Created", data.CreatedAt.Format("2006-01-02 15:04")},
	}

	rows := make([]core.Row, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		rows = append(rows, row.New(6).Add(
			col.New(3).Add(text.New(p.label, props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Color: colorSecondary,
			})),
			col.New(9).Add(text.New(p.value, props.Text{
				Size:  9,
				Color: colorPrimary,
			})),
		))
	}
	return rows
}

func buildHistoryTable(data OrderReportData) []core.Row {
	rows := []core.Row{
		row.New(8).Add(col.New(12).Add(text.New("Transition history", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Color: colorPrimary,
		}))),
		row.New(7).WithStyle(&props.Cell{BackgroundColor: colorTableHead}).Add(
			headerCell("When", 3),
			headerCell("Stage", 3),
			headerCell("Status", 3),
			headerCell("Note", 3),
		),
	}

	for i, h := range data.History {
		style := &props.Cell{}
		if i%2 == 1 {
			style.BackgroundColor = colorTableAlt
		}
		rows = append(rows, row.New(6).WithStyle(style).Add(
			bodyCell(h.At.Format("2006-01-02 15:04"), 3),
			bodyCell(transitionText(h.PreviousStage, h.NewStage), 3),
			bodyCell(transitionText(h.PreviousStatus, h.NewStatus), 3),
			bodyCell(h.Note, 3),
		))
	}
	return rows
}

func transitionText(previous, current string) string {
	if previous == "" || previous == current {
		return current
	}
	return previous + " > " + current
}

func headerCell(label string, size int) core.Col {
	return col.New(size).Add(text.New(label, props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Color: colorPrimary,
		Left:  1,
	}))
}

func bodyCell(value string, size int) core.Col {
	return col.New(size).Add(text.New(value, props.Text{
		Size:  8,
		Color: colorPrimary,
		Left:  1,
	}))
}
