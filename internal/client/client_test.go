package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/config"
	"github.com/openmined/vaultsync/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.VaultDir = t.TempDir()
	cfg.Store = &blob.Config{Kind: blob.KindMemory}
	cfg.PollInterval = 0
	cfg.Path = filepath.Join(t.TempDir(), "config.json")
	return cfg
}

func writeVaultFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store = &blob.Config{Kind: blob.KindHTTP}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestClientOpenLocksVault(t *testing.T) {
	cfg := newTestConfig(t)

	first, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Open())

	second, err := New(cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, second.Open(), vault.ErrVaultLocked)

	require.NoError(t, first.Close())
	require.NoError(t, second.Open())
	require.NoError(t, second.Close())
}

func TestClientStatusAndSync(t *testing.T) {
	cfg := newTestConfig(t)
	writeVaultFile(t, cfg.VaultDir, "notes/a.md", "a")
	writeVaultFile(t, cfg.VaultDir, "notes/data.json", "{}")

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, st.LocalFiles)
	assert.Equal(t, 1, st.Eligible)
	assert.True(t, st.Configured)
	assert.Equal(t, "memory", st.StoreKind)
	assert.False(t, st.Synced)

	res := c.Engine().SyncAllFiles(context.Background())
	require.True(t, res.OK, res.Message)

	st, err = c.Status()
	require.NoError(t, err)
	assert.True(t, st.Synced)
}

func TestClientWithoutStore(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store = nil

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	st, err := c.Status()
	require.NoError(t, err)
	assert.False(t, st.Configured)
	assert.Equal(t, "none", st.StoreKind)

	res := c.Engine().SyncAllFiles(context.Background())
	assert.True(t, res.Unconfigured)
}

func TestClientPreSyncBackup(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.BackupsEnabled = true
	cfg.BackupBeforeSync = true

	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.preSyncBackup(ctx))

	markers, err := c.Backups().ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Empty(t, markers[0].FolderPath)

	c.config.BackupBeforeSync = false
	require.NoError(t, c.preSyncBackup(ctx))
	markers, err = c.Backups().ListBackups(ctx)
	require.NoError(t, err)
	assert.Len(t, markers, 1)
}

func TestClientStartRunsInitialPass(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Bidirectional = true
	writeVaultFile(t, cfg.VaultDir, "start.md", "hello")

	c, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, c.Start(ctx))

	// state survives in the sqlite db after the daemon releases the vault
	st, err := c.Status()
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, st.Synced)

	content, ok, err := c.store.Get(context.Background(), "start.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(content))
}
