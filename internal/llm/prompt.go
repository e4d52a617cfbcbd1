package llm

import "strings"

// Instruction is the fixed natural-language task sent with every image.
// Tabular data must stay under "tables"; export assumes the first table is the table.
var Instruction = strings.Join([]string{
	"You are a document data extractor. Analyze the attached document image.",
	"Extract every standalone key/value detail (invoice number, dates, parties, totals, addresses) into 'fields' as {label, value}.",
	"Put any grid or list of repeating items (line items, transactions, schedules) into 'tables' with a short 'name', the column 'headers', and one entry in 'rows' per line with 'values' in header order.",
	"Never flatten table rows into 'fields' and never repeat a field inside a table.",
	"Each row must have exactly one value per header; use an empty string for a blank cell.",
	"Use the labels as printed on the document. Keep values as printed, without currency conversion.",
	"Return ONLY JSON that matches the provided schema. Never output null; use empty arrays or empty strings instead.",
}, " ")

// BuildUserPrompt returns the instruction with an optional filename hint.
func BuildUserPrompt(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return Instruction
	}
	return Instruction + "\nFilename: " + filename
}
