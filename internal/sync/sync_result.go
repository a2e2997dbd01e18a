package sync

import (
	"fmt"
	"log/slog"
)

type Op string

const (
	OpSyncFile     Op = "sync-file"
	OpSyncAll      Op = "sync-all"
	OpSyncMissing  Op = "sync-missing"
	OpDownload     Op = "download"
	OpDeleteRemote Op = "delete-remote"
)

// Result is the user-facing outcome of one engine operation. Every public
// operation produces exactly one Result and hands it to the Notifier.
type Result struct {
	Op           Op
	OK           bool
	Busy         bool
	Unconfigured bool

	Total     int
	Succeeded int
	Failed    int

	Uploaded   int
	Downloaded int
	Created    int
	Deleted    int
	Skipped    int

	Message string
}

// Partial reports a pass where some, but not all, files failed.
func (r Result) Partial() bool {
	return r.OK && r.Failed > 0
}

func (r *Result) succeed() {
	r.Total++
	r.Succeeded++
}

func (r *Result) fail() {
	r.Total++
	r.Failed++
}

// summarize settles OK and a default message from the counters.
func (r *Result) summarize(noun string) {
	r.OK = r.Succeeded > 0
	if r.Message != "" {
		return
	}

	switch {
	case r.Total == 0:
		r.Message = "nothing to " + noun
	case r.Failed == 0:
		r.Message = fmt.Sprintf("%s complete: %d/%d files", noun, r.Succeeded, r.Total)
	default:
		r.Message = fmt.Sprintf("%s partially complete: %d/%d files, %d failed", noun, r.Succeeded, r.Total, r.Failed)
	}
}

// Notifier receives the single Result of every engine operation.
type Notifier func(Result)

// LogNotifier reports results through slog.
func LogNotifier(r Result) {
	attrs := []any{
		"op", r.Op,
		"ok", r.OK,
		"total", r.Total,
		"succeeded", r.Succeeded,
		"failed", r.Failed,
	}

	switch {
	case r.Busy, r.Unconfigured:
		slog.Warn(r.Message, attrs...)
	case !r.OK && r.Total > 0, r.Partial():
		slog.Warn(r.Message, attrs...)
	default:
		slog.Info(r.Message, attrs...)
	}
}
