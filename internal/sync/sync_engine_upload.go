package sync

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
)

// SyncAllFiles runs a full reconciliation pass. With bidirectional sync the
// download phase completes before any local file is considered for upload.
func (se *SyncEngine) SyncAllFiles(ctx context.Context) Result {
	return se.run(ctx, OpSyncAll, true, func(ctx context.Context, log *slog.Logger, res *Result) {
		if se.Settings().Bidirectional {
			settled := se.downloadPhase(ctx, log, res)
			se.uploadPhase(ctx, log, res, UploadIfChanged, settled)
		} else {
			se.uploadPhase(ctx, log, res, UploadAlways, nil)
		}

		res.summarize("sync")
		if res.OK {
			se.state.MarkSynced(se.now())
		}
	})
}

// SyncMissingFiles uploads only the local files that have no remote object,
// leaving existing remote content untouched.
func (se *SyncEngine) SyncMissingFiles(ctx context.Context) Result {
	return se.run(ctx, OpSyncMissing, true, func(ctx context.Context, log *slog.Logger, res *Result) {
		se.uploadPhase(ctx, log, res, UploadIfMissing, nil)
		res.summarize("upload")
	})
}

func (se *SyncEngine) uploadPhase(ctx context.Context, log *slog.Logger, res *Result, mode UploadMode, settled map[string]string) {
	files, err := se.local.ListFiles()
	if err != nil {
		log.Error("sync", "op", ActionUpload, "error", err)
		res.fail()
		res.Message = fmt.Sprintf("failed to list local files: %v", err)
		return
	}

	se.mu.RLock()
	files = se.eligibility.Filter(files)
	se.mu.RUnlock()

	// freshly listed so the download phase's writes and remote changes since are both visible
	var remote mapset.Set[string]
	if mode != UploadAlways {
		if remote, err = se.listRemoteKeys(ctx); err != nil {
			log.Error("sync", "op", ActionUpload, "error", err)
			res.fail()
			res.Message = fmt.Sprintf("failed to list remote objects: %v", err)
			return
		}
	}

	baseFolder := se.Settings().BaseFolder
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			log.Warn("sync", "op", ActionUpload, "error", err)
			return
		}

		key := ToKey(file.Path, baseFolder)
		st := UploadState{}
		var content []byte

		if remote != nil {
			st.RemotePresent = remote.Contains(key)
		}

		if hash, ok := settled[key]; ok && st.RemotePresent {
			st.Reconciled = true
			if content, err = se.readLocal(file); err != nil {
				log.Error("sync", "op", ActionUpload, "path", file.Path, "error", err)
				res.fail()
				continue
			}
			st.Unchanged = contentHash(content) == hash
		}

		if DecideUpload(mode, st) != ActionUpload {
			res.Skipped++
			continue
		}

		if err := se.uploadFile(ctx, log, file, content); err != nil {
			res.fail()
			continue
		}
		res.succeed()
		res.Uploaded++
	}
}
