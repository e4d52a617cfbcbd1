package llm

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/entity"
)

// ExtractRequest is one image handed to a vision provider.
type ExtractRequest struct {
	Image    []byte
	MIMEType string
	Filename string // optional hint, logged only
}

// Validate rejects requests that no provider could process, before any network call.
func (r ExtractRequest) Validate() error {
	if len(r.Image) == 0 {
		return common.InvalidInputf("image payload is empty")
	}
	if !constants.IsSupportedImage(r.MIMEType) {
		return common.InvalidInputf("unsupported image type %q", r.MIMEType)
	}
	return nil
}

// Extractor is the interface the workspace depends on. Implementations make a
// single attempt; failures are returned as *ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (entity.ExtractedData, []byte /*rawJSON*/, error)
}

// ExtractionError reports a vision call that failed or returned unusable data.
type ExtractionError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Cause      error
}

func (e *ExtractionError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("%s extraction failed (status %d): %s: %v", e.Provider, e.StatusCode, e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s extraction failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s extraction failed: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s extraction failed: %s", e.Provider, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, common.ErrUpstream) hold for every extraction failure.
func (e *ExtractionError) Is(target error) bool { return target == common.ErrUpstream }
