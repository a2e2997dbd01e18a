package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/openmined/vaultsync/internal/utils"
	"github.com/rjeczalik/notify"
)

const (
	DefaultIgnoreTimeout   = 2 * time.Second
	defaultCleanupInterval = 15 * time.Second
	eventBufferSize        = 64
	defaultDebounceTimeout = 50 * time.Millisecond
)

// WatchEvent is a settled change to one vault file.
type WatchEvent struct {
	Path    string
	Removed bool
}

// FilterCallback returns true if the event for the vault path should be dropped.
type FilterCallback func(path string) bool

// FileWatcher turns raw notify events under the vault root into WatchEvents.
// Bursts of events for one path collapse into a single event.
type FileWatcher struct {
	root      string
	events    chan WatchEvent
	rawEvents chan notify.EventInfo
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	ignore          map[string]time.Time
	ignoreMu        sync.Mutex
	cleanupInterval time.Duration

	pending         map[string]*time.Timer
	closed          bool
	debounceMu      sync.Mutex
	debounceTimeout time.Duration

	filter   FilterCallback
	filterMu sync.RWMutex
}

func NewFileWatcher(root string) *FileWatcher {
	return &FileWatcher{
		root:            root,
		done:            make(chan struct{}),
		ignore:          make(map[string]time.Time),
		cleanupInterval: defaultCleanupInterval,
		pending:         make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

func (fw *FileWatcher) SetDebounceTimeout(timeout time.Duration) {
	fw.debounceTimeout = timeout
}

// FilterPaths installs a callback that drops events before debouncing.
func (fw *FileWatcher) FilterPaths(callback FilterCallback) {
	fw.filterMu.Lock()
	defer fw.filterMu.Unlock()
	fw.filter = callback
}

func (fw *FileWatcher) Start(ctx context.Context) error {
	slog.Info("file watcher start", "dir", fw.root)

	fw.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	fw.events = make(chan WatchEvent, eventBufferSize)

	recursivePath := filepath.Join(fw.root, "...")
	if err := notify.Watch(recursivePath, fw.rawEvents, notify.Write, notify.Create, notify.Remove, notify.Rename); err != nil {
		return err
	}

	fw.wg.Add(2)
	go fw.filterEvents(ctx)
	go fw.cleanupExpiredEntries(ctx)

	return nil
}

func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.done)
		if fw.rawEvents != nil {
			notify.Stop(fw.rawEvents)
		}
		fw.wg.Wait()
		slog.Info("file watcher stopped")
	})
}

// Events is closed once the watcher stops.
func (fw *FileWatcher) Events() <-chan WatchEvent {
	return fw.events
}

// IgnoreOnce suppresses the next event for path, which the engine is about to write.
func (fw *FileWatcher) IgnoreOnce(path string) {
	fw.IgnoreOnceWithTimeout(path, DefaultIgnoreTimeout)
}

func (fw *FileWatcher) IgnoreOnceWithTimeout(path string, timeout time.Duration) {
	fw.ignoreMu.Lock()
	defer fw.ignoreMu.Unlock()
	fw.ignore[path] = time.Now().Add(timeout)
}

// consumeIgnore reports whether path was marked with IgnoreOnce, clearing the mark.
func (fw *FileWatcher) consumeIgnore(path string) bool {
	fw.ignoreMu.Lock()
	defer fw.ignoreMu.Unlock()

	expiry, ok := fw.ignore[path]
	if !ok {
		return false
	}
	delete(fw.ignore, path)
	return time.Now().Before(expiry)
}

func (fw *FileWatcher) filterEvents(ctx context.Context) {
	defer func() {
		fw.debounceMu.Lock()
		for path, timer := range fw.pending {
			timer.Stop()
			delete(fw.pending, path)
		}
		fw.closed = true
		close(fw.events)
		fw.debounceMu.Unlock()

		fw.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.rawEvents:
			if !ok {
				return
			}

			rel, ok := utils.RelSlash(fw.root, event.Path())
			if !ok {
				continue
			}

			fw.filterMu.RLock()
			filter := fw.filter
			fw.filterMu.RUnlock()
			if filter != nil && filter(rel) {
				continue
			}

			fw.debounce(rel)
		}
	}
}

// debounce restarts the quiet timer for path. Editors emit a burst of writes per save.
func (fw *FileWatcher) debounce(path string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if timer, ok := fw.pending[path]; ok {
		timer.Stop()
	}
	fw.pending[path] = time.AfterFunc(fw.debounceTimeout, func() {
		fw.flush(path)
	})
}

func (fw *FileWatcher) flush(path string) {
	fw.debounceMu.Lock()
	if _, ok := fw.pending[path]; !ok {
		fw.debounceMu.Unlock()
		return
	}
	delete(fw.pending, path)
	fw.debounceMu.Unlock()

	if fw.consumeIgnore(path) {
		slog.Debug("file watcher ignored", "path", path)
		return
	}

	abs := filepath.Join(fw.root, filepath.FromSlash(path))
	if utils.DirExists(abs) {
		return
	}

	// renames report both ends with the same event, so the disk decides
	event := WatchEvent{Path: path, Removed: !utils.FileExists(abs)}

	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()
	if fw.closed {
		return
	}

	select {
	case fw.events <- event:
		slog.Debug("file watcher", "path", path, "removed", event.Removed)
	default:
		slog.Warn("file watcher dropped", "reason", "channel full", "path", path)
	}
}

func (fw *FileWatcher) cleanupExpiredEntries(ctx context.Context) {
	defer fw.wg.Done()

	ticker := time.NewTicker(fw.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case <-ticker.C:
			fw.ignoreMu.Lock()
			now := time.Now()
			for path, expiry := range fw.ignore {
				if now.After(expiry) {
					delete(fw.ignore, path)
				}
			}
			fw.ignoreMu.Unlock()
		}
	}
}
