package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openmined/vaultsync/internal/vault"
)

const (
	DefaultSyncDelay    = 5 * time.Second
	DefaultPollInterval = 5 * time.Minute
)

type ManagerOptions struct {
	// AutoSync uploads files after local edits settle for SyncDelay.
	AutoSync     bool
	SyncDelay    time.Duration
	PollInterval time.Duration
	// PreSync runs before every periodic pass. Its error is logged and the pass still runs.
	PreSync func(ctx context.Context) error
}

// SyncManager connects the file watcher, the change scheduler and the periodic
// poll to the engine.
type SyncManager struct {
	engine    *SyncEngine
	watcher   *FileWatcher
	scheduler *ChangeScheduler

	mu     sync.RWMutex
	opts   ManagerOptions
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(engine *SyncEngine, watcher *FileWatcher, opts ManagerOptions) *SyncManager {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = DefaultSyncDelay
	}
	return &SyncManager{
		engine:  engine,
		watcher: watcher,
		opts:    opts,
	}
}

func (m *SyncManager) Options() ManagerOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// UpdateOptions applies new options. The poll interval takes effect after the next tick.
func (m *SyncManager) UpdateOptions(opts ManagerOptions) {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = DefaultSyncDelay
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
}

func (m *SyncManager) Start(ctx context.Context) error {
	slog.Info("sync manager start", "autoSync", m.Options().AutoSync, "pollInterval", m.Options().PollInterval)

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.scheduler = NewChangeScheduler(ctx, func(ctx context.Context, file *vault.File) {
		m.engine.SyncFile(ctx, file)
	})

	if m.watcher != nil {
		m.watcher.FilterPaths(func(p string) bool {
			return !HasSyncExtension(p)
		})
		if err := m.watcher.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		m.engine.SetLocalWriteHook(m.watcher.IgnoreOnce)

		m.wg.Add(1)
		go m.handleEvents(ctx)
	}

	m.wg.Add(1)
	go m.poll(ctx)

	return nil
}

func (m *SyncManager) Stop() {
	slog.Info("sync manager stop")
	if m.cancel != nil {
		m.cancel()
	}
	if m.watcher != nil {
		m.watcher.Stop()
		m.engine.SetLocalWriteHook(nil)
	}
	m.wg.Wait()
	// after the event loop exits nothing schedules anymore
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

// RunPass is the periodic pass: a full reconciliation when bidirectional, else
// an upload of files missing remotely.
func (m *SyncManager) RunPass(ctx context.Context) Result {
	if preSync := m.Options().PreSync; preSync != nil {
		if err := preSync(ctx); err != nil {
			slog.Warn("pre-sync hook", "error", err)
		}
	}

	if m.engine.Settings().Bidirectional {
		return m.engine.SyncAllFiles(ctx)
	}
	return m.engine.SyncMissingFiles(ctx)
}

func (m *SyncManager) handleEvents(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.watcher.Events():
			if !ok {
				return
			}
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *SyncManager) handleEvent(ctx context.Context, ev WatchEvent) {
	opts := m.Options()
	if !opts.AutoSync || !m.engine.Eligible(ev.Path) {
		return
	}

	file := vault.NewFile(ev.Path)
	if ev.Removed {
		m.engine.DeleteRemoteForFile(ctx, file)
		return
	}
	m.scheduler.Schedule(file, opts.SyncDelay)
}

func (m *SyncManager) poll(ctx context.Context) {
	defer m.wg.Done()

	interval := m.Options().PollInterval
	if interval <= 0 {
		slog.Info("sync manager poll disabled")
		<-ctx.Done()
		return
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.RunPass(ctx)
			if next := m.Options().PollInterval; next > 0 {
				interval = next
			}
			timer.Reset(interval)
		}
	}
}
