package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/vaultsync/internal/backup"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/config"
	vsync "github.com/openmined/vaultsync/internal/sync"
	"github.com/openmined/vaultsync/internal/vault"
	"golang.org/x/sync/errgroup"
)

// Client wires a vault, an object store and the sync machinery from one Config.
type Client struct {
	config  *config.Config
	store   blob.ObjectStore
	vault   *vault.Vault
	state   *vsync.SyncStateStore
	engine  *vsync.SyncEngine
	backups *backup.BackupManager
	watcher *vsync.FileWatcher
	manager *vsync.SyncManager
	opened  bool
}

func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := blob.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	v, err := vault.New(cfg.VaultDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	c := &Client{
		config: cfg,
		store:  store,
		vault:  v,
	}

	c.backups = backup.NewBackupManager(store, backup.Options{
		Snapshot:     cfg.BackupSnapshot,
		Snapshotable: vsync.HasSyncExtension,
	})
	c.watcher = vsync.NewFileWatcher(v.Root)

	return c, nil
}

func (c *Client) Config() *config.Config          { return c.config }
func (c *Client) Vault() *vault.Vault             { return c.vault }
func (c *Client) Backups() *backup.BackupManager { return c.backups }

// Engine is available after Open.
func (c *Client) Engine() *vsync.SyncEngine { return c.engine }

func (c *Client) settings() vsync.Settings {
	return vsync.Settings{
		BaseFolder:    c.config.BaseFolder,
		Bidirectional: c.config.Bidirectional,
		ConfigDir:     c.config.ConfigDir,
	}
}

// Open bootstraps and locks the vault and loads the persisted sync state.
// Every caller that touches the vault or the store goes through Open.
func (c *Client) Open() error {
	if c.opened {
		return nil
	}

	if err := c.vault.Bootstrap(); err != nil {
		return err
	}
	if err := c.vault.Lock(); err != nil {
		return err
	}

	state, err := vsync.NewSyncStateStore(c.config.StateDBPath())
	if err != nil {
		c.vault.Unlock()
		return fmt.Errorf("failed to open sync state: %w", err)
	}
	c.state = state

	c.engine = vsync.NewSyncEngine(c.store, c.vault, vsync.NewSyncState(state), vsync.EngineOptions{
		Settings: c.settings(),
		Ignore:   c.vault.Ignore(),
	})
	c.manager = vsync.NewManager(c.engine, c.watcher, vsync.ManagerOptions{
		AutoSync:     c.config.AutoSync,
		SyncDelay:    c.config.SyncDelayDuration(),
		PollInterval: c.config.PollIntervalDuration(),
		PreSync:      c.preSyncBackup,
	})

	c.opened = true
	return nil
}

func (c *Client) Close() error {
	if !c.opened {
		return nil
	}
	c.opened = false

	return errors.Join(c.state.Close(), c.vault.Unlock())
}

// Start runs the daemon until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Open(); err != nil {
		return err
	}
	defer c.Close()

	slog.Info("vaultsync start",
		"vault", c.vault.Root,
		"base", c.config.BaseFolder,
		"store", c.storeKind(),
		"bidirectional", c.config.Bidirectional,
		"autoSync", c.config.AutoSync,
	)
	if !c.engine.Configured() {
		slog.Warn("object store not configured, sync operations will be rejected")
	}

	if err := c.manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync manager: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if !c.engine.Configured() {
			return nil
		}
		c.cleanupBackups(egCtx)
		res := c.manager.RunPass(egCtx)
		slog.Debug("initial pass", "op", res.Op, "ok", res.OK)
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping client")
		c.manager.Stop()
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("client failure", "error", err)
		return err
	}

	slog.Info("vaultsync stopped")
	return nil
}

// preSyncBackup runs before periodic passes when backups before sync are on.
func (c *Client) preSyncBackup(ctx context.Context) error {
	if !c.config.BackupsEnabled || !c.config.BackupBeforeSync {
		return nil
	}
	if _, err := c.backups.CreateBackup(ctx, ""); err != nil {
		return err
	}
	c.cleanupBackups(ctx)
	return nil
}

func (c *Client) cleanupBackups(ctx context.Context) {
	if !c.config.BackupsEnabled {
		return
	}
	n, err := c.backups.CleanupOldBackups(ctx, c.config.BackupRetentionDays)
	if err != nil {
		slog.Warn("backup cleanup", "error", err)
		return
	}
	if n > 0 {
		slog.Info("backup cleanup", "removed", n)
	}
}

func (c *Client) storeKind() string {
	if !c.config.Store.Configured() {
		return "none"
	}
	return string(c.config.Store.Kind)
}

// Status is a snapshot for the CLI.
type Status struct {
	VaultDir     string
	BaseFolder   string
	StoreKind    string
	Configured   bool
	InProgress   bool
	LastSyncTime time.Time
	Synced       bool
	LocalFiles   int
	Eligible     int
}

func (c *Client) Status() (Status, error) {
	if err := c.Open(); err != nil {
		return Status{}, err
	}

	st := Status{
		VaultDir:   c.vault.Root,
		BaseFolder: c.config.BaseFolder,
		StoreKind:  c.storeKind(),
		Configured: c.engine.Configured(),
		InProgress: c.engine.InProgress(),
	}
	st.LastSyncTime, st.Synced = c.engine.State().LastSyncTime()

	files, err := c.vault.ListFiles()
	if err != nil {
		return st, err
	}
	st.LocalFiles = len(files)
	for _, f := range files {
		if c.engine.Eligible(f.Path) {
			st.Eligible++
		}
	}
	return st, nil
}
