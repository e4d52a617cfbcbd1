package constants

import "strings"

// ImageMIMETypes holds the image formats accepted by the vision providers.
var ImageMIMETypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

var extToMIME = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEForExt maps a file extension to an accepted image MIME type, or "".
func MIMEForExt(ext string) string {
	return extToMIME[NormalizeExt(ext)]
}

// IsSupportedImage reports whether the MIME type (parameters ignored) is accepted.
func IsSupportedImage(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	_, ok := ImageMIMETypes[mt]
	return ok
}
