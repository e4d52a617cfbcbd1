package export

import (
	"strings"

	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// ClipboardText renders every field and every table (not just the primary
// one) as tab-separated plain text.
func ClipboardText(d entity.ExtractedData) string {
	d = d.Normalize()
	var b strings.Builder
	b.WriteString("--- DETAILS ---\n")
	for _, f := range d.Fields {
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value.String())
		b.WriteByte('\n')
	}
	if len(d.Tables) == 0 {
		return b.String()
	}
	b.WriteString("--- TABLES ---\n")
	for _, t := range d.Tables {
		b.WriteString("[" + t.Name + "]\n")
		b.WriteString(strings.Join(t.Headers, "\t"))
		b.WriteByte('\n')
		for _, r := range t.Rows {
			b.WriteString(strings.Join(r.Values, "\t"))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
