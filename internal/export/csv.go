// Package export renders ExtractedData for download and clipboard use.
package export

import (
	"strings"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// CSV renders the flattened data: every value wrapped in double quotes,
// comma separated, one line per row. Embedded quotes are written verbatim.
func CSV(d entity.ExtractedData) string {
	headers, rows := d.Normalize().Flatten()
	var b strings.Builder
	writeCSVLine(&b, headers)
	for _, r := range rows {
		b.WriteByte('\n')
		writeCSVLine(&b, r)
	}
	return b.String()
}

func writeCSVLine(b *strings.Builder, values []string) {
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(v)
		b.WriteByte('"')
	}
}
