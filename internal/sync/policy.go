package sync

import "bytes"

// Action is the outcome of comparing one local file with its remote object.
// Deciding performs no I/O; the engine carries the action out.
type Action uint8

var actionNames = []string{
	"Noop",
	"Upload",
	"Download",
	"CreateLocal",
	"Skip",
}

const (
	// ActionNoop: both sides hold identical bytes.
	ActionNoop Action = iota
	// ActionUpload: write the local content to the remote key.
	ActionUpload
	// ActionDownload: remote differs and wins, overwrite the local file.
	ActionDownload
	// ActionCreateLocal: remote exists with no local counterpart, create it (and its folders).
	ActionCreateLocal
	// ActionSkip: nothing to transfer for this key.
	ActionSkip
)

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "Unknown"
}

// Decide resolves a key seen during the download phase of a reconciliation pass.
//
// There is no timestamp comparison and no merge inside a file: once the remote
// bytes differ from the local bytes the remote side replaces the local file.
func Decide(local, remote []byte, localExists, remoteExists bool) Action {
	if !remoteExists {
		return ActionSkip
	}
	if !localExists {
		return ActionCreateLocal
	}
	if bytes.Equal(local, remote) {
		return ActionNoop
	}
	return ActionDownload
}

// UploadMode selects which local files an upload pass pushes.
type UploadMode uint8

const (
	// UploadAlways pushes unconditionally (single file sync, one-way full sync).
	UploadAlways UploadMode = iota
	// UploadIfMissing pushes only files whose key is absent remotely.
	UploadIfMissing
	// UploadIfChanged follows a download phase: push keys absent remotely, and keys whose
	// local content changed after the download phase reconciled them.
	UploadIfChanged
)

// UploadState is what the upload phase knows about one local file.
type UploadState struct {
	// RemotePresent is true when the freshly listed remote keys contain the file's key.
	RemotePresent bool
	// Reconciled is true when the download phase settled this key in the current pass.
	Reconciled bool
	// Unchanged is true when the local content still matches what the download phase settled.
	Unchanged bool
}

// DecideUpload resolves a local file during the upload phase.
func DecideUpload(mode UploadMode, st UploadState) Action {
	switch mode {
	case UploadAlways:
		return ActionUpload
	case UploadIfMissing:
		if st.RemotePresent {
			return ActionSkip
		}
		return ActionUpload
	case UploadIfChanged:
		if !st.RemotePresent {
			return ActionUpload
		}
		// a key the download phase could not settle keeps its remote content
		if !st.Reconciled || st.Unchanged {
			return ActionSkip
		}
		return ActionUpload
	default:
		return ActionSkip
	}
}
