package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldValue is a scalar field value. The vision model may emit it as a JSON
// string or number; numbers keep their literal text so "0012" style values and
// decimals survive untouched.
type FieldValue string

func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*v = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*v = FieldValue(b)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("field value must be a string or number: %w", err)
		}
		*v = FieldValue(n.String())
		return nil
	}
}

func (v FieldValue) String() string { return string(v) }

// Field is one scalar document attribute. Labels are not unique.
type Field struct {
	Label string     `json:"label"`
	Value FieldValue `json:"value"`
}

// TableRow holds values positionally aligned with the owning table's headers.
type TableRow struct {
	Values []string `json:"values"`
}

// Table is one extracted grid.
type Table struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    []TableRow `json:"rows"`
}

// ExtractedData is the unit of extraction, editing and export.
type ExtractedData struct {
	Fields []Field `json:"fields"`
	Tables []Table `json:"tables"`
}

// Empty returns an ExtractedData with non-nil empty sequences.
func Empty() ExtractedData {
	return ExtractedData{Fields: []Field{}, Tables: []Table{}}
}

// PrimaryTable returns the first table, the only one ever exported.
func (d ExtractedData) PrimaryTable() (Table, bool) {
	if len(d.Tables) == 0 {
		return Table{}, false
	}
	return d.Tables[0], true
}

// Normalize replaces nil sequences with empty ones at every level. It does not
// pad rows; readers pad on access.
func (d ExtractedData) Normalize() ExtractedData {
	out := d.Clone()
	if out.Fields == nil {
		out.Fields = []Field{}
	}
	if out.Tables == nil {
		out.Tables = []Table{}
	}
	for i := range out.Tables {
		t := &out.Tables[i]
		if t.Headers == nil {
			t.Headers = []string{}
		}
		if t.Rows == nil {
			t.Rows = []TableRow{}
		}
		for j := range t.Rows {
			if t.Rows[j].Values == nil {
				t.Rows[j].Values = []string{}
			}
		}
	}
	return out
}

// Clone deep-copies the data so two Results never share row storage.
func (d ExtractedData) Clone() ExtractedData {
	out := ExtractedData{}
	if d.Fields != nil {
		out.Fields = append(make([]Field, 0, len(d.Fields)), d.Fields...)
	}
	if d.Tables != nil {
		out.Tables = make([]Table, len(d.Tables))
		for i, t := range d.Tables {
			out.Tables[i] = t.Clone()
		}
	}
	return out
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	out := Table{Name: t.Name}
	if t.Headers != nil {
		out.Headers = append(make([]string, 0, len(t.Headers)), t.Headers...)
	}
	if t.Rows != nil {
		out.Rows = make([]TableRow, len(t.Rows))
		for i, r := range t.Rows {
			if r.Values != nil {
				out.Rows[i].Values = append(make([]string, 0, len(r.Values)), r.Values...)
			}
		}
	}
	return out
}

// Padded returns the row's values projected onto n header positions: short rows
// are padded with empty strings, surplus values beyond the headers are dropped.
func (r TableRow) Padded(n int) []string {
	out := make([]string, n)
	copy(out, r.Values)
	return out
}

// Equal reports structural equality.
func (d ExtractedData) Equal(o ExtractedData) bool {
	a, b := d.Normalize(), o.Normalize()
	if len(a.Fields) != len(b.Fields) || len(a.Tables) != len(b.Tables) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	for i := range a.Tables {
		ta, tb := a.Tables[i], b.Tables[i]
		if ta.Name != tb.Name || !equalStrings(ta.Headers, tb.Headers) || len(ta.Rows) != len(tb.Rows) {
			return false
		}
		for j := range ta.Rows {
			if !equalStrings(ta.Rows[j].Values, tb.Rows[j].Values) {
				return false
			}
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Summary is a short human description used in logs.
func (d ExtractedData) Summary() string {
	rows := 0
	if t, ok := d.PrimaryTable(); ok {
		rows = len(t.Rows)
	}
	return fmt.Sprintf("fields=%d tables=%d primary_rows=%d", len(d.Fields), len(d.Tables), rows)
}

// Labels returns the field labels in order.
func (d ExtractedData) Labels() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Label
	}
	return out
}

// Values returns the field values in order.
func (d ExtractedData) Values() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Value.String()
	}
	return out
}
