package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteSheetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sheet1", "Sheet1"},
		{"line_items", "line_items"},
		{"My Sheet", "'My Sheet'"},
		{"Bob's", "'Bob''s'"},
		{"Q1-2024", "'Q1-2024'"},
		{"Résumé", "'Résumé'"},
		{"", "''"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, QuoteSheetName(tc.in), tc.in)
	}
}

func TestRange(t *testing.T) {
	assert.Equal(t, "Sheet1!A1:Z1", Range("Sheet1", "A1:Z1"))
	assert.Equal(t, "'Result 1'!A2", Range("Result 1", "A2"))
}
