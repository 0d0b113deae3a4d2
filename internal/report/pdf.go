// Package report renders the portfolio as a PDF document.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"
	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/portfolio"
	"github.com/shopspring/decimal"
)

const (
	// Title heads the first page.
	Title = "Financial Analyst Assistant - Portfolio Report"
	// Filename is the download name of the report.
	Filename = "portfolio_report.pdf"

	// Layout in points on a US letter page.
	marginX      = 50.0
	bottomMargin = 100.0
	rowHeight    = 20.0
)

var columnX = []float64{50, 150, 250, 350}

// Row is one formatted table line.
type Row struct {
	Ticker   string
	Quantity string
	Price    string
	Value    string
}

// Table is the formatted content of a report.
type Table struct {
	Rows  []Row
	Total string
}

// BuildTable formats a valuation. Unpriced lines show N/A for price and value.
func BuildTable(v portfolio.Valuation) Table {
	t := Table{Rows: make([]Row, 0, len(v.Lines)), Total: money(v.Total)}
	for _, line := range v.Lines {
		row := Row{
			Ticker:   line.Ticker,
			Quantity: number(line.Quantity),
			Price:    core.NotAvailable,
			Value:    core.NotAvailable,
		}
		if line.Priced {
			row.Price = money(line.Price)
			row.Value = money(line.Value)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Renderer builds portfolio reports.
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a renderer stamping reports with the current UTC time.
func NewRenderer() *Renderer {
	return &Renderer{now: func() time.Time { return time.Now().UTC() }}
}

// Render prices holdings with lookup and returns the PDF bytes.
func (r *Renderer) Render(ctx context.Context, holdings []core.Holding, lookup portfolio.PriceLookup) ([]byte, error) {
	return r.RenderValuation(portfolio.Value(ctx, holdings, lookup))
}

// RenderValuation lays out an already priced portfolio.
func (r *Renderer) RenderValuation(v portfolio.Valuation) ([]byte, error) {
	table := BuildTable(v)
	generated := r.now()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(generated)
	pdf.SetTitle(Title, true)
	pdf.AddPage()

	width, height := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(0, 40)
	pdf.CellFormat(width, 20, Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginX, 80, "Generated on: "+generated.Format("2006-01-02 15:04:05")+" UTC")

	y := 120.0
	pdf.SetFont("Helvetica", "B", 12)
	drawRow(pdf, y, "Ticker", "Quantity", "Price", "Value")
	y += 10
	pdf.Line(marginX, y, width-marginX, y)
	y += 25

	pdf.SetFont("Helvetica", "", 12)
	for _, row := range table.Rows {
		drawRow(pdf, y, row.Ticker, row.Quantity, row.Price, row.Value)
		y += rowHeight
		if y > height-bottomMargin {
			pdf.AddPage()
			y = 50
			pdf.SetFont("Helvetica", "", 12)
		}
	}

	y += rowHeight
	pdf.Line(marginX, y-15, width-marginX, y-15)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(columnX[0], y, "Total Portfolio Value:")
	pdf.Text(columnX[3], y, table.Total)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, core.WrapError(core.ErrReportFailed, fmt.Errorf("writing pdf: %w", err))
	}
	return buf.Bytes(), nil
}

func drawRow(pdf *fpdf.Fpdf, y float64, cells ...string) {
	for i, c := range cells {
		pdf.Text(columnX[i], y, c)
	}
}

func money(d decimal.Decimal) string {
	return "$" + number(d)
}

func number(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}
