package entity

// Flatten projects the data into one header row plus data rows:
// headers = field labels ++ primary table headers; one row per primary table
// row (field values broadcast onto every row), or a single row of field values
// when there is no table. Tables after the first are not part of the output.
func (d ExtractedData) Flatten() (headers []string, rows [][]string) {
	headers = d.Labels()
	values := d.Values()

	table, ok := d.PrimaryTable()
	if !ok {
		return headers, [][]string{values}
	}

	headers = append(headers, table.Headers...)
	rows = make([][]string, 0, len(table.Rows))
	for _, r := range table.Rows {
		row := make([]string, 0, len(headers))
		row = append(row, values...)
		row = append(row, r.Padded(len(table.Headers))...)
		rows = append(rows, row)
	}
	return headers, rows
}
