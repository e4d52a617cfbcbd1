package sheets

import "strings"

// QuoteSheetName renders a sheet title for A1 notation. Titles made only of
// [A-Za-z0-9_] are used bare; anything else is wrapped in single quotes with
// embedded quotes doubled.
func QuoteSheetName(name string) string {
	if name != "" && isPlainTitle(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Range joins a sheet title and a cell span, e.g. Range("My Sheet", "A1:Z1")
// yields 'My Sheet'!A1:Z1.
func Range(sheet, cells string) string {
	return QuoteSheetName(sheet) + "!" + cells
}

func isPlainTitle(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
