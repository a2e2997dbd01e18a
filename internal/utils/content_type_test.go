package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"md", "text/markdown"},
		{".md", "text/markdown"},
		{"MD", "text/markdown"},
		{"txt", "text/plain"},
		{"png", "image/png"},
		{"jpg", "image/jpeg"},
		{"jpeg", "image/jpeg"},
		{"gif", "image/gif"},
		{"svg", "image/svg+xml"},
		{"webp", "image/webp"},
		{"pdf", "application/pdf"},
		{"canvas", DefaultContentType},
		{"", DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeFor(tt.ext))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/markdown", DetectContentType("notes/daily/2024-01-01.md"))
	assert.Equal(t, "image/png", DetectContentType("assets/Pasted image.PNG"))
	assert.Equal(t, DefaultContentType, DetectContentType("Makefile"))
	assert.Equal(t, "", Ext("Makefile"))
	assert.Equal(t, "jpeg", Ext("a/b.c/photo.JPEG"))
}
