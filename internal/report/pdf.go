package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
)

// DefaultPDFName is the file name offered for a downloaded PDF view
const DefaultPDFName = "filtered_stocks.pdf"

// DefaultTitle is printed above the table
const DefaultTitle = "Filtered Stocks"

const (
	margin    = 14.0
	titleY    = 15.0
	tableY    = 20.0
	rowHeight = 6.0
	fontSize  = 8.0
)

var (
	headFill = [3]int{41, 128, 185}
	altFill  = [3]int{245, 245, 245}
)

// WritePDF renders cols of every row, Label included, as a landscape A4
// table. The header row repeats on every page.
func WritePDF(w io.Writer, title string, cols []string, rows []contracts.LabeledRow) error {
	if len(rows) == 0 {
		return csvio.ErrNothingToExport
	}
	if len(cols) == 0 {
		return fmt.Errorf("no columns to render")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	colW := (pageW - 2*margin) / float64(len(cols))

	header := func() {
		pdf.SetFont("Helvetica", "B", fontSize)
		pdf.SetFillColor(headFill[0], headFill[1], headFill[2])
		pdf.SetTextColor(255, 255, 255)
		for _, c := range cols {
			pdf.CellFormat(colW, rowHeight, fit(pdf, tr(c), colW), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(rowHeight)
		pdf.SetFont("Helvetica", "", fontSize)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, titleY, tr(title))
	pdf.SetXY(margin, tableY)
	header()

	for n, r := range rows {
		if pdf.GetY()+rowHeight > pageH-margin {
			pdf.AddPage()
			pdf.SetXY(margin, margin)
			header()
		}

		fill := n%2 == 1
		if fill {
			pdf.SetFillColor(altFill[0], altFill[1], altFill[2])
		}
		for _, c := range cols {
			v := r.Get(c)
			if c == contracts.LabelHeader {
				v = string(r.Label)
			}
			pdf.CellFormat(colW, rowHeight, fit(pdf, tr(v), colW), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// fit cuts s with a trailing "..." so it fits a cell of width w
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
