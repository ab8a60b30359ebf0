package mediatypes

import "strings"

// ImageExtensions lists the image formats tracked by the index, lowercase and
// without the leading dot.
var ImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// MimeTypes maps supported extensions to their MIME types.
var MimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// NormalizeExtension lowercases ext and strips a leading dot, so ".JPG",
// "JPG" and "jpg" all normalize to "jpg".
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSupportedImage reports whether ext (any case, with or without the dot)
// is one of the tracked image formats.
func IsSupportedImage(ext string) bool {
	return ImageExtensions[NormalizeExtension(ext)]
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[NormalizeExtension(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
