package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

func invoice() entity.ExtractedData {
	return entity.ExtractedData{
		Fields: []entity.Field{{Label: "Vendor", Value: "Acme"}},
		Tables: []entity.Table{
			{
				Name:    "Items",
				Headers: []string{"Desc", "Qty"},
				Rows: []entity.TableRow{
					{Values: []string{"Bolt", "2"}},
					{Values: []string{"Nut"}},
				},
			},
			{
				Name:    "Totals: final",
				Headers: []string{"Total"},
				Rows:    []entity.TableRow{{Values: []string{"14.00"}}},
			},
		},
	}
}

func TestCSV_FieldAndPrimaryTable(t *testing.T) {
	d := entity.ExtractedData{
		Fields: []entity.Field{{Label: "Invoice", Value: "A1"}},
		Tables: []entity.Table{{Headers: []string{"Total"}, Rows: []entity.TableRow{{Values: []string{"9"}}}}},
	}

	assert.Equal(t, "\"Invoice\",\"Total\"\n\"A1\",\"9\"", CSV(d))
}

func TestCSV_BroadcastsFieldsAndPadsRows(t *testing.T) {
	want := "\"Vendor\",\"Desc\",\"Qty\"\n" +
		"\"Acme\",\"Bolt\",\"2\"\n" +
		"\"Acme\",\"Nut\",\"\""
	assert.Equal(t, want, CSV(invoice()))
}

func TestCSV_QuotesAreNotEscaped(t *testing.T) {
	d := entity.Empty().AddField(`Note "x"`, `say "hi", ok`)

	assert.Equal(t, "\"Note \"x\"\"\n\"say \"hi\", ok\"", CSV(d))
}

func TestCSV_FieldsOnly(t *testing.T) {
	d := entity.Empty().AddField("Date", "2024-03-01").AddField("Total", "12.50")
	assert.Equal(t, "\"Date\",\"Total\"\n\"2024-03-01\",\"12.50\"", CSV(d))
}

func TestClipboardText_IncludesAllTables(t *testing.T) {
	want := "--- DETAILS ---\n" +
		"Vendor: Acme\n" +
		"--- TABLES ---\n" +
		"[Items]\n" +
		"Desc\tQty\n" +
		"Bolt\t2\n" +
		"Nut\n" +
		"\n" +
		"[Totals: final]\n" +
		"Total\n" +
		"14.00\n" +
		"\n"
	assert.Equal(t, want, ClipboardText(invoice()))
}

func TestClipboardText_FieldsOnly(t *testing.T) {
	d := entity.Empty().AddField("Date", "2024-03-01")
	assert.Equal(t, "--- DETAILS ---\nDate: 2024-03-01\n", ClipboardText(d))
}

func TestXLSX_WritesFlattenedGridAndSecondaryTables(t *testing.T) {
	b, err := NewService(nil).XLSX(invoice())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{XLSXSheetName, "Table 2 Totals final"}, f.GetSheetList())

	rows, err := f.GetRows(XLSXSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Vendor", "Desc", "Qty"}, rows[0])
	assert.Equal(t, []string{"Acme", "Bolt", "2"}, rows[1])
	assert.Equal(t, []string{"Acme", "Nut"}, rows[2])

	total, err := f.GetCellValue("Table 2 Totals final", "A2")
	require.NoError(t, err)
	assert.Equal(t, "14.00", total)
}

func TestPDF_RendersDocument(t *testing.T) {
	b, err := NewService(nil).PDF("Invoice März", invoice())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
	assert.True(t, bytes.Contains(b, []byte("%%EOF")))
}

func TestPDF_WideTableAndEmptyData(t *testing.T) {
	wide := entity.Empty().AddTable("Wide", []string{"a", "b", "c", "d", "e", "f", "g", "h"})
	wide, err := wide.AddRow(0)
	require.NoError(t, err)

	b, err := NewService(nil).PDF("", wide)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))

	b, err = NewService(nil).PDF("empty", entity.Empty())
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestSecondarySheetName(t *testing.T) {
	assert.Equal(t, "Table 3", secondarySheetName(2, "[]"))
	assert.Equal(t, "Table 2 ab", secondarySheetName(1, "a/b"))
	long := secondarySheetName(1, "a very long table name that overflows")
	assert.Len(t, []rune(long), 31)
}
