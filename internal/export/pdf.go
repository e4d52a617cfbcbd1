package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// landscapeColumns is the column count above which tables are laid out on a
// landscape page.
const landscapeColumns = 6

// PDF renders a printable report of the result: its fields as label/value
// lines followed by every table as a bordered grid.
func (s *Service) PDF(title string, d entity.ExtractedData) ([]byte, error) {
	start := time.Now()
	d = d.Normalize()

	orientation := "P"
	for _, t := range d.Tables {
		if len(t.Headers) > landscapeColumns {
			orientation = "L"
			break
		}
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if strings.TrimSpace(title) == "" {
		title = "Extraction"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("docsheet", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	if len(d.Fields) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Details")
		pdf.Ln(9)
		for _, f := range d.Fields {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(50, 6, tr(f.Label), "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 6, tr(f.Value.String()), "", "L", false)
		}
		pdf.Ln(4)
	}

	for i, t := range d.Tables {
		name := t.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Table %d", i+1)
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, tr(name))
		pdf.Ln(9)
		writeTable(pdf, tr, t)
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}

	s.logger.Info("export.pdf.ok",
		"fields", len(d.Fields),
		"tables", len(d.Tables),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, t entity.Table) {
	if len(t.Headers) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, "(no columns)")
		pdf.Ln(6)
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(t.Headers))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, h := range t.Headers {
		pdf.CellFormat(colW, 7, tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range t.Rows {
		for _, v := range r.Padded(len(t.Headers)) {
			pdf.CellFormat(colW, 6, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
