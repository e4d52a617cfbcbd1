package sheets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/docsheet/internal/common"
)

// SyncError is a failed step of the sync protocol. Message is taken from the
// API's error body when one is available so it can be shown to the user.
type SyncError struct {
	Op         string // metadata | add_sheet | read_headers | write_headers | append
	StatusCode int
	Status     string // API status, e.g. UNAUTHENTICATED, NOT_FOUND
	Message    string
	Cause      error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheets %s failed (%d): %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("sheets %s failed: %s", e.Op, msg)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// Is lets callers test errors.Is(err, common.ErrUnauthorized) for token
// failures and errors.Is(err, common.ErrUpstream) for everything else.
func (e *SyncError) Is(target error) bool {
	switch target {
	case common.ErrUnauthorized:
		return e.IsAuth()
	case common.ErrUpstream:
		return !e.IsAuth()
	case common.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuth reports an invalid or expired token. Besides the 401 status the check
// also looks for "401"/"unauthorized" in the message, since some failures
// only carry the hint in the body text.
func (e *SyncError) IsAuth() bool {
	if e.StatusCode == http.StatusUnauthorized || e.Status == "UNAUTHENTICATED" {
		return true
	}
	return LooksUnauthorized(e.Message)
}

// LooksUnauthorized is the message heuristic for authorization failures.
func LooksUnauthorized(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized")
}

// IsAuthError reports whether err is a sync failure caused by the token.
func IsAuthError(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.IsAuth()
	}
	return false
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func newAPIError(op string, statusCode int, body []byte) *SyncError {
	se := &SyncError{Op: op, StatusCode: statusCode}
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		se.Message = parsed.Error.Message
		se.Status = parsed.Error.Status
		return se
	}
	se.Message = strings.TrimSpace(string(body))
	if se.Message == "" {
		se.Message = http.StatusText(statusCode)
	}
	return se
}
