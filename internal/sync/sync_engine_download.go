package sync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// DownloadRemoteChanges runs the download phase on its own. It is a no-op when
// bidirectional sync is off.
func (se *SyncEngine) DownloadRemoteChanges(ctx context.Context) Result {
	return se.run(ctx, OpDownload, true, func(ctx context.Context, log *slog.Logger, res *Result) {
		if !se.Settings().Bidirectional {
			res.Message = "bidirectional sync is disabled"
			return
		}

		se.downloadPhase(ctx, log, res)
		res.summarize("download")
	})
}

// listRemoteKeys returns every remote key outside the backup namespace.
func (se *SyncEngine) listRemoteKeys(ctx context.Context) (mapset.Set[string], error) {
	keys, err := se.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list remote: %w", err)
	}

	set := mapset.NewSet[string]()
	for _, key := range keys {
		if key == "" || IsBackupKey(key) {
			continue
		}
		set.Add(key)
	}
	return set, nil
}

// downloadPhase reconciles every eligible remote key against the vault. It
// returns the keys it settled, mapped to the hash of the content both sides
// held at that moment.
func (se *SyncEngine) downloadPhase(ctx context.Context, log *slog.Logger, res *Result) map[string]string {
	settled := make(map[string]string)

	remote, err := se.listRemoteKeys(ctx)
	if err != nil {
		log.Error("sync", "op", OpDownload, "error", err)
		res.fail()
		return settled
	}

	baseFolder := se.Settings().BaseFolder
	keys := remote.ToSlice()
	slices.Sort(keys)

	for _, key := range keys {
		localPath := ToPath(key, baseFolder)
		if localPath == "" {
			// key names the base folder itself; there is no file to map it to
			log.Warn("sync", "op", OpDownload, "key", key, "reason", "key equals base folder")
			res.Skipped++
			continue
		}
		if !se.Eligible(localPath) {
			continue
		}

		hash, err := se.reconcileKey(ctx, log, key, localPath, res)
		if err != nil {
			log.Error("sync", "op", OpDownload, "key", key, "path", localPath, "error", err)
			res.fail()
			continue
		}
		if hash != "" {
			settled[key] = hash
		}
	}

	return settled
}

// reconcileKey applies the policy to one remote key. It returns the hash of the
// settled content, or "" when the key was skipped.
func (se *SyncEngine) reconcileKey(ctx context.Context, log *slog.Logger, key, localPath string, res *Result) (string, error) {
	remote, found, err := se.store.Get(ctx, key)
	if err != nil {
		return "", err
	}

	var local []byte
	file := se.local.Exists(localPath)
	if file != nil {
		if local, err = se.readLocal(file); err != nil {
			return "", fmt.Errorf("read local: %w", err)
		}
	}

	action := Decide(local, remote, file != nil, found)
	switch action {
	case ActionSkip:
		// listed but gone by the time we fetched it
		res.Skipped++
		return "", nil

	case ActionNoop:
		res.succeed()

	case ActionDownload:
		se.announceLocalWrite(localPath)
		if err := se.local.Modify(localPath, remote); err != nil {
			return "", fmt.Errorf("modify: %w", err)
		}
		res.succeed()
		res.Downloaded++

	case ActionCreateLocal:
		if dir := parentDir(localPath); dir != "" {
			if err := se.local.CreateFolder(dir); err != nil {
				return "", fmt.Errorf("create folder %s: %w", dir, err)
			}
		}
		se.announceLocalWrite(localPath)
		if _, err := se.local.Create(localPath, remote); err != nil {
			return "", fmt.Errorf("create: %w", err)
		}
		res.succeed()
		res.Created++

	default:
		return "", fmt.Errorf("unexpected action %s", action)
	}

	if action != ActionNoop {
		log.Info("sync", "op", action, "key", key, "path", localPath, "size", humanizeBytes(len(remote)))
	}
	return contentHash(remote), nil
}
