package constants

// ResultStatus is the lifecycle state of one workspace Result (tab).
type ResultStatus string

const (
	StatusAnalyzing ResultStatus = "ANALYZING" // extraction in flight
	StatusSuccess   ResultStatus = "SUCCESS"   // data populated
	StatusError     ResultStatus = "ERROR"     // extraction failed; ErrorMessage set
	StatusExporting ResultStatus = "EXPORTING" // spreadsheet sync in flight
)

// Terminal reports whether no operation is in flight for the status.
func (s ResultStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}
