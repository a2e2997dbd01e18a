package utils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiLogHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	debugHandler := slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiLogHandler(debugHandler, infoHandler)).With("component", "sync")

	logger.Debug("scan", "files", 3)
	logger.Info("upload", "path", "a.md")

	assert.Contains(t, debugBuf.String(), "msg=scan")
	assert.Contains(t, debugBuf.String(), "msg=upload")
	assert.Contains(t, debugBuf.String(), "component=sync")
	assert.NotContains(t, infoBuf.String(), "msg=scan")
	assert.Contains(t, infoBuf.String(), "path=a.md")
}

func TestMultiLogHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiLogHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
