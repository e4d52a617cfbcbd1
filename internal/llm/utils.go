package llm

import (
	"encoding/base64"
	"strings"
)

// DataURL encodes an image payload as a data: URL for providers that take
// images inline in chat messages.
func DataURL(image []byte, mimeType string) string {
	mt := strings.TrimSpace(mimeType)
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// Base64 encodes an image payload for providers that take raw inline data.
func Base64(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}
