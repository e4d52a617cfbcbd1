package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// XLSXSheetName is the worksheet written by XLSX.
const XLSXSheetName = "Extraction"

// Service produces workbook downloads of extracted data.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// XLSX returns a workbook (as bytes) with the flattened header row followed
// by the data rows, plus one extra worksheet per secondary table so nothing
// the model found is lost in the download.
func (s *Service) XLSX(d entity.ExtractedData) ([]byte, error) {
	start := time.Now()
	d = d.Normalize()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", XLSXSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	headers, rows := d.Flatten()
	if err := writeGrid(f, XLSXSheetName, headers, rows); err != nil {
		return nil, err
	}

	for i, t := range d.Tables {
		if i == 0 {
			continue
		}
		name := secondarySheetName(i, t.Name)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
		grid := make([][]string, len(t.Rows))
		for j, r := range t.Rows {
			grid[j] = r.Padded(len(t.Headers))
		}
		if err := writeGrid(f, name, t.Headers, grid); err != nil {
			return nil, err
		}
	}

	idx, _ := f.GetSheetIndex(XLSXSheetName)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"columns", len(headers),
		"rows", len(rows),
		"tables", len(d.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeGrid(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", cell, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	if len(headers) > 0 {
		last, _ := excelize.ColumnNumberToName(len(headers))
		_ = f.SetColWidth(sheet, "A", last, 18)
	}
	return nil
}

// secondarySheetName builds a worksheet title within Excel's 31 character
// limit and without the characters Excel forbids.
func secondarySheetName(i int, name string) string {
	clean := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			continue
		}
		clean = append(clean, r)
	}
	prefix := fmt.Sprintf("Table %d", i+1)
	if len(clean) == 0 {
		return prefix
	}
	title := prefix + " " + string(clean)
	if r := []rune(title); len(r) > 31 {
		title = string(r[:31])
	}
	return title
}
