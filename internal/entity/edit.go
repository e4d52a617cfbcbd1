package entity

import (
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// Editing operations never mutate the receiver; each returns a new value.

func (d ExtractedData) AddField(label string, value FieldValue) ExtractedData {
	out := d.Normalize()
	out.Fields = append(out.Fields, Field{Label: label, Value: value})
	return out
}

func (d ExtractedData) SetField(i int, label string, value FieldValue) (ExtractedData, error) {
	if i < 0 || i >= len(d.Fields) {
		return d, common.InvalidInputf("field index %d out of range", i)
	}
	out := d.Normalize()
	out.Fields[i] = Field{Label: label, Value: value}
	return out, nil
}

func (d ExtractedData) RemoveField(i int) (ExtractedData, error) {
	if i < 0 || i >= len(d.Fields) {
		return d, common.InvalidInputf("field index %d out of range", i)
	}
	out := d.Normalize()
	out.Fields = append(out.Fields[:i], out.Fields[i+1:]...)
	return out, nil
}

func (d ExtractedData) AddTable(name string, headers []string) ExtractedData {
	out := d.Normalize()
	h := append([]string{}, headers...)
	out.Tables = append(out.Tables, Table{Name: name, Headers: h, Rows: []TableRow{}})
	return out
}

// AddRow appends a row of empty strings sized to the table headers.
func (d ExtractedData) AddRow(tableIdx int) (ExtractedData, error) {
	if tableIdx < 0 || tableIdx >= len(d.Tables) {
		return d, common.InvalidInputf("table index %d out of range", tableIdx)
	}
	out := d.Normalize()
	t := &out.Tables[tableIdx]
	t.Rows = append(t.Rows, TableRow{Values: make([]string, len(t.Headers))})
	return out, nil
}

// SetCell writes one cell, padding the row up to the column first.
func (d ExtractedData) SetCell(tableIdx, rowIdx, col int, value string) (ExtractedData, error) {
	if tableIdx < 0 || tableIdx >= len(d.Tables) {
		return d, common.InvalidInputf("table index %d out of range", tableIdx)
	}
	t := d.Tables[tableIdx]
	if rowIdx < 0 || rowIdx >= len(t.Rows) {
		return d, common.InvalidInputf("row index %d out of range", rowIdx)
	}
	if col < 0 || col >= len(t.Headers) {
		return d, common.InvalidInputf("column index %d out of range", col)
	}
	out := d.Normalize()
	row := &out.Tables[tableIdx].Rows[rowIdx]
	if len(row.Values) <= col {
		row.Values = TableRow{Values: row.Values}.Padded(len(t.Headers))
	}
	row.Values[col] = value
	return out, nil
}

func (d ExtractedData) RemoveRow(tableIdx, rowIdx int) (ExtractedData, error) {
	if tableIdx < 0 || tableIdx >= len(d.Tables) {
		return d, common.InvalidInputf("table index %d out of range", tableIdx)
	}
	if rowIdx < 0 || rowIdx >= len(d.Tables[tableIdx].Rows) {
		return d, common.InvalidInputf("row index %d out of range", rowIdx)
	}
	out := d.Normalize()
	t := &out.Tables[tableIdx]
	t.Rows = append(t.Rows[:rowIdx], t.Rows[rowIdx+1:]...)
	return out, nil
}
