package entity

import (
	"time"

	"github.com/joseph-ayodele/docsheet/constants"
)

// Result is one workspace tab: an uploaded image and its extraction state.
type Result struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Image        []byte                 `json:"-"`
	MIMEType     string                 `json:"mime_type"`
	Data         ExtractedData          `json:"data"`
	Status       constants.ResultStatus `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Clone copies the result so the caller can mutate it without touching the
// stored instance. The image payload is immutable after upload and is shared.
func (r Result) Clone() Result {
	out := r
	out.Data = r.Data.Clone()
	return out
}
