// Package pdf renders patient-facing quote documents using maroto/v2.
package pdf

import (
	"fmt"
	"strings"
	"time"

	"medtour_backend/platform/money"

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
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128}
	colorAccent    = &props.Color{Red: 13, Green: 148, Blue: 136}
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249}
	colorTableAlt  = &props.Color{Red: 249, Green: 250, Blue: 251}
	colorGreen     = &props.Color{Red: 22, Green: 163, Blue: 74}
	colorRed       = &props.Color{Red: 220, Green: 38, Blue: 38}
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240}
)

const dateLayout = "02 Jan 2006"

// CostLine is one priced component of the quote.
type CostLine struct {
	Label  string
	Amount int64
}

// Installment is one payment schedule entry.
type Installment struct {
	Amount      int64
	DueDate     string
	Description string
}

// QuotePDFData holds everything printed on a quote.
type QuotePDFData struct {
	Reference        string
	Status           string
	OrganizationName string
	HospitalName     string
	TreatmentName    string
	Currency         string
	Lines            []CostLine
	Total            int64
	Schedule         []Installment
	Notes            *string
	CreatedAt        time.Time
	ValidUntil       time.Time
	AcceptedAt       *time.Time
}

// GenerateQuotePDF renders data to PDF bytes.
func GenerateQuotePDF(data QuotePDFData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)
	if err := m.RegisterFooter(buildFooter(data)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(data)...)
	m.AddRows(separator(), row.New(6))
	m.AddRows(buildDetails(data)...)
	m.AddRows(row.New(6))
	m.AddRows(buildCostTable(data)...)

	if len(data.Schedule) > 0 {
		m.AddRows(row.New(6))
		m.AddRows(buildSchedule(data)...)
	}
	if data.Notes != nil && strings.TrimSpace(*data.Notes) != "" {
		m.AddRows(row.New(6))
		m.AddRows(sectionTitle("NOTES"), row.New(12).Add(
			col.New(12).Add(text.New(*data.Notes, props.Text{Size: 8, Color: colorSecondary, Top: 1})),
		))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func buildHeader(data QuotePDFData) []core.Row {
	return []core.Row{
		row.New(20).Add(
			col.New(6).Add(text.New(data.OrganizationName, props.Text{
				Size: 14, Style: fontstyle.Bold, Color: colorPrimary, Top: 4,
			})),
			col.New(6).Add(
				text.New("TREATMENT QUOTE", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right, Color: colorAccent}),
				text.New(data.Reference, props.Text{Size: 9, Align: align.Right, Color: colorSecondary, Top: 11}),
			),
		),
	}
}

func buildDetails(data QuotePDFData) []core.Row {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}
	value := props.Text{Size: 9, Color: colorPrimary}
	right := props.Text{Size: 8, Color: colorSecondary, Align: align.Right}

	rows := []core.Row{
		row.New(5).Add(
			col.New(4).Add(text.New("HOSPITAL", label)),
			col.New(4).Add(text.New("TREATMENT", label)),
			col.New(4).Add(text.New("ISSUED", props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right})),
		),
		row.New(5).Add(
			col.New(4).Add(text.New(orDash(data.HospitalName), value)),
			col.New(4).Add(text.New(orDash(data.TreatmentName), value)),
			col.New(4).Add(text.New(data.CreatedAt.Format(dateLayout), right)),
		),
		row.New(5).Add(
			col.New(8),
			col.New(4).Add(text.New("Valid until: "+data.ValidUntil.Format(dateLayout), right)),
		),
		row.New(5).Add(
			col.New(8),
			col.New(4).Add(text.New("Status: "+data.Status, props.Text{
				Size: 8, Style: fontstyle.Bold, Color: statusColor(data.Status), Align: align.Right,
			})),
		),
	}
	if data.AcceptedAt != nil {
		rows = append(rows, row.New(8).Add(
			col.New(12).Add(text.New("Accepted on "+data.AcceptedAt.Format(dateLayout+" 15:04"), props.Text{
				Size: 9, Style: fontstyle.Bold, Color: colorGreen, Top: 2,
			})),
		))
	}
	return rows
}

func buildCostTable(data QuotePDFData) []core.Row {
	head := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5}
	headRight := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5, Align: align.Right}

	rows := []core.Row{
		sectionTitle("COSTS"),
		row.New(7).Add(
			col.New(8).Add(text.New("Component", head)),
			col.New(4).Add(text.New("Amount", headRight)),
		).WithStyle(&props.Cell{BackgroundColor: colorTableHead, BorderType: border.Bottom, BorderColor: colorBorder}),
	}

	for i, line := range data.Lines {
		r := row.New(7).Add(
			col.New(8).Add(text.New(line.Label, props.Text{Size: 8, Color: colorPrimary, Top: 1})),
			col.New(4).Add(text.New(money.Format(line.Amount, data.Currency), props.Text{Size: 8, Color: colorPrimary, Top: 1, Align: align.Right})),
		)
		if i%2 == 0 {
			r.WithStyle(&props.Cell{BackgroundColor: colorTableAlt})
		}
		rows = append(rows, r)
	}

	total := props.Text{Size: 12, Style: fontstyle.Bold, Color: colorPrimary, Align: align.Right, Top: 2}
	rows = append(rows, row.New(2), row.New(10).Add(
		col.New(8).Add(text.New("TOTAL", total)),
		col.New(4).Add(text.New(money.Format(data.Total, data.Currency), total)),
	).WithStyle(&props.Cell{BackgroundColor: colorTableHead, BorderType: border.Top + border.Bottom, BorderColor: colorBorder}))
	return rows
}

func buildSchedule(data QuotePDFData) []core.Row {
	rows := []core.Row{sectionTitle("PAYMENT SCHEDULE")}
	for _, item := range data.Schedule {
		rows = append(rows, row.New(6).Add(
			col.New(3).Add(text.New(item.DueDate, props.Text{Size: 8, Color: colorSecondary})),
			col.New(5).Add(text.New(item.Description, props.Text{Size: 8, Color: colorPrimary})),
			col.New(4).Add(text.New(money.Format(item.Amount, data.Currency), props.Text{Size: 8, Color: colorPrimary, Align: align.Right})),
		))
	}
	return rows
}

func buildFooter(data QuotePDFData) core.Row {
	footer := data.OrganizationName + "  |  " + data.Reference
	return row.New(10).Add(
		col.New(12).Add(text.New(footer, props.Text{Size: 6.5, Color: colorSecondary, Align: align.Center, Top: 4})),
	).WithStyle(&props.Cell{BorderType: border.Top, BorderColor: colorBorder})
}

func sectionTitle(title string) core.Row {
	return row.New(7).Add(
		col.New(12).Add(text.New(title, props.Text{Size: 8, Style: fontstyle.Bold, Color: colorAccent})),
	)
}

func separator() core.Row {
	return row.New(1).WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: colorBorder})
}

func statusColor(status string) *props.Color {
	switch status {
	case "ACCEPTED":
		return colorGreen
	case "EXPIRED", "CANCELLED":
		return colorRed
	case "SENT":
		return colorAccent
	default:
		return colorSecondary
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
