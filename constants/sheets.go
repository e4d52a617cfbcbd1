package constants

const (
	// SheetsScope is the OAuth scope requested for spreadsheet read/write.
	SheetsScope = "https://www.googleapis.com/auth/spreadsheets"

	// HeaderRange is the column span read when discovering existing headers.
	HeaderRange = "A1:Z1"

	// ValueInputUserEntered lets the spreadsheet parse numbers, dates and formulas.
	ValueInputUserEntered = "USER_ENTERED"
)
