package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/utils"
	"github.com/openmined/vaultsync/internal/vault"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
	ErrNoStore            = errors.New("object store not configured")
	ErrNotSyncable        = errors.New("file is not syncable")
)

// LocalStore is the vault as seen by the engine. Paths are vault-relative and slash separated.
type LocalStore interface {
	ListFiles() ([]*vault.File, error)
	Read(path string) (string, error)
	ReadBinary(path string) ([]byte, error)
	Create(path string, content []byte) (*vault.File, error)
	Modify(path string, content []byte) error
	CreateFolder(path string) error
	Exists(path string) *vault.File
}

// Settings are the user options the engine reads on every operation.
type Settings struct {
	BaseFolder    string
	Bidirectional bool
	ConfigDir     string
}

type EngineOptions struct {
	Settings Settings
	Ignore   *vault.IgnoreList
	Notifier Notifier
	// OnLocalWrite runs right before the engine writes path in the vault.
	OnLocalWrite func(path string)
	Now          func() time.Time
}

type SyncEngine struct {
	store blob.ObjectStore
	local LocalStore
	state *SyncState

	mu          sync.RWMutex
	settings    Settings
	eligibility *Eligibility
	ignore      *vault.IgnoreList

	notifier     Notifier
	onLocalWrite func(path string)
	now          func() time.Time
}

// NewSyncEngine builds an engine. store may be nil, in which case every
// operation fails fast as unconfigured.
func NewSyncEngine(store blob.ObjectStore, local LocalStore, state *SyncState, opts EngineOptions) *SyncEngine {
	if state == nil {
		state = NewSyncState(nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	se := &SyncEngine{
		store:        store,
		local:        local,
		state:        state,
		ignore:       opts.Ignore,
		notifier:     opts.Notifier,
		onLocalWrite: opts.OnLocalWrite,
		now:          opts.Now,
	}
	se.UpdateSettings(opts.Settings)
	return se
}

func (se *SyncEngine) UpdateSettings(s Settings) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.settings = s
	se.eligibility = NewEligibility(s.BaseFolder, s.ConfigDir, se.ignore)
}

func (se *SyncEngine) Settings() Settings {
	se.mu.RLock()
	defer se.mu.RUnlock()
	return se.settings
}

func (se *SyncEngine) Eligible(path string) bool {
	se.mu.RLock()
	defer se.mu.RUnlock()
	return se.eligibility.Eligible(path)
}

func (se *SyncEngine) SetLocalWriteHook(fn func(path string)) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.onLocalWrite = fn
}

func (se *SyncEngine) State() *SyncState {
	return se.state
}

func (se *SyncEngine) InProgress() bool {
	return se.state.InProgress()
}

func (se *SyncEngine) Configured() bool {
	return se.store != nil
}

// ===================================================================================================

// SyncFile uploads the current content of one file.
func (se *SyncEngine) SyncFile(ctx context.Context, file *vault.File) Result {
	return se.run(ctx, OpSyncFile, true, func(ctx context.Context, log *slog.Logger, res *Result) {
		if !se.Eligible(file.Path) {
			res.Skipped++
			res.Message = fmt.Sprintf("%s: %s", ErrNotSyncable, file.Path)
			return
		}

		if err := se.uploadFile(ctx, log, file, nil); err != nil {
			res.fail()
			res.Message = fmt.Sprintf("failed to sync %s: %v", file.Path, err)
		} else {
			res.succeed()
			res.Uploaded++
			res.Message = "synced " + file.Path
		}

		res.summarize("sync")
		if res.OK {
			se.state.MarkSynced(se.now())
		}
	})
}

// DeleteRemoteForFile propagates a local deletion. It does not take the in-flight
// guard, so it may interleave with a running pass.
func (se *SyncEngine) DeleteRemoteForFile(ctx context.Context, file *vault.File) Result {
	return se.run(ctx, OpDeleteRemote, false, func(ctx context.Context, log *slog.Logger, res *Result) {
		if !HasSyncExtension(file.Path) {
			res.Skipped++
			res.Message = fmt.Sprintf("%s: %s", ErrNotSyncable, file.Path)
			return
		}

		key := ToKey(file.Path, se.Settings().BaseFolder)
		if err := se.store.Delete(ctx, key); err != nil {
			log.Error("sync", "op", OpDeleteRemote, "key", key, "error", err)
			res.fail()
			res.Message = fmt.Sprintf("failed to delete remote %s: %v", key, err)
		} else {
			log.Info("sync", "op", OpDeleteRemote, "key", key)
			res.succeed()
			res.Deleted++
			res.Message = "deleted remote " + key
		}
		res.summarize("delete")
	})
}

// ===================================================================================================

// run wraps every public operation: unconfigured and busy checks, the in-flight
// guard, panic recovery and the single notification.
func (se *SyncEngine) run(ctx context.Context, op Op, guarded bool, fn func(context.Context, *slog.Logger, *Result)) (res Result) {
	res.Op = op
	log := slog.With("pass", uuid.NewString()[:8])

	defer func() {
		if p := recover(); p != nil {
			log.Error("sync panic", "op", op, "panic", p)
			res.OK = false
			res.Message = fmt.Sprintf("%s failed: %v", op, p)
		}
		se.notifier(res)
	}()

	if se.store == nil {
		res.Unconfigured = true
		res.Message = ErrNoStore.Error()
		return res
	}

	if guarded {
		if !se.state.tryBegin() {
			res.Busy = true
			res.Message = ErrSyncAlreadyRunning.Error()
			return res
		}
		defer se.state.end()
	}

	tStart := time.Now()
	fn(ctx, log, &res)
	log.Debug("sync op done", "op", op, "ok", res.OK, "took", time.Since(tStart))
	return res
}

func (se *SyncEngine) readLocal(file *vault.File) ([]byte, error) {
	if file.IsText() {
		text, err := se.local.Read(file.Path)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	return se.local.ReadBinary(file.Path)
}

// uploadFile puts the file at its key. content is read from the vault when nil.
func (se *SyncEngine) uploadFile(ctx context.Context, log *slog.Logger, file *vault.File, content []byte) error {
	if content == nil {
		var err error
		if content, err = se.readLocal(file); err != nil {
			log.Error("sync", "op", ActionUpload, "path", file.Path, "error", err)
			return fmt.Errorf("read %s: %w", file.Path, err)
		}
	}

	key := ToKey(file.Path, se.Settings().BaseFolder)
	if err := se.store.Put(ctx, key, content, utils.ContentTypeFor(file.Extension)); err != nil {
		log.Error("sync", "op", ActionUpload, "key", key, "error", err)
		return err
	}

	log.Info("sync", "op", ActionUpload, "key", key, "size", humanizeBytes(len(content)))
	return nil
}

func (se *SyncEngine) announceLocalWrite(path string) {
	se.mu.RLock()
	hook := se.onLocalWrite
	se.mu.RUnlock()
	if hook != nil {
		hook(path)
	}
}
