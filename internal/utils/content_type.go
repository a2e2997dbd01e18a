package utils

import (
	"path"
	"strings"
)

const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"md":   "text/markdown",
	"txt":  "text/plain",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

// Ext returns the lowercased extension of p without the leading dot.
func Ext(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// ContentTypeFor maps a file extension (with or without the dot) to the content type used for uploads.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return ct
	}
	return DefaultContentType
}

// DetectContentType is ContentTypeFor applied to the extension of key.
func DetectContentType(key string) string {
	return ContentTypeFor(Ext(key))
}
