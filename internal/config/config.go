package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/utils"
)

const (
	DefaultSyncDelaySeconds    = 5
	DefaultPollIntervalMinutes = 5
	DefaultRetentionDays       = 30
	DefaultConfigDir           = ".obsidian"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".vaultsync", "config.json")
	DefaultLogFilePath = filepath.Join(home, ".vaultsync", "logs", "vaultsync.log")
)

var ErrNoVault = errors.New("vault directory is required")

type Config struct {
	VaultDir      string `json:"vault_dir" mapstructure:"vault_dir"`
	BaseFolder    string `json:"base_folder" mapstructure:"base_folder"`
	ConfigDir     string `json:"config_dir,omitempty" mapstructure:"config_dir"`
	Bidirectional bool   `json:"bidirectional" mapstructure:"bidirectional"`
	AutoSync      bool   `json:"auto_sync" mapstructure:"auto_sync"`
	// SyncDelay is the quiet period in seconds after a local edit.
	SyncDelay int `json:"sync_delay" mapstructure:"sync_delay"`
	// PollInterval is the periodic pass interval in minutes. 0 disables polling.
	PollInterval int `json:"poll_interval" mapstructure:"poll_interval"`

	BackupsEnabled      bool `json:"backups_enabled" mapstructure:"backups_enabled"`
	BackupRetentionDays int  `json:"backup_retention_days" mapstructure:"backup_retention_days"`
	BackupBeforeSync    bool `json:"backup_before_sync" mapstructure:"backup_before_sync"`
	BackupSnapshot      bool `json:"backup_snapshot" mapstructure:"backup_snapshot"`

	StateDB string       `json:"state_db,omitempty" mapstructure:"state_db"`
	Store   *blob.Config `json:"store,omitempty" mapstructure:"store"`

	Debug bool   `json:"-" mapstructure:"debug"`
	Path  string `json:"-" mapstructure:"-"`
}

// Default returns a config with every optional value set.
func Default() *Config {
	return &Config{
		ConfigDir:           DefaultConfigDir,
		AutoSync:            true,
		SyncDelay:           DefaultSyncDelaySeconds,
		PollInterval:        DefaultPollIntervalMinutes,
		BackupRetentionDays: DefaultRetentionDays,
		Path:                DefaultConfigPath,
	}
}

func (c *Config) SyncDelayDuration() time.Duration {
	return time.Duration(c.SyncDelay) * time.Second
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Minute
}

// StateDBPath is the SQLite file holding sync state, inside the vault metadata dir by default.
func (c *Config) StateDBPath() string {
	if c.StateDB != "" {
		return c.StateDB
	}
	return filepath.Join(c.VaultDir, ".vaultsync", "state.db")
}

// Validate normalizes paths and checks every field.
func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return ErrNoVault
	}

	vaultDir, err := utils.ResolvePath(c.VaultDir)
	if err != nil {
		return fmt.Errorf("vault dir: %w", err)
	}
	c.VaultDir = vaultDir

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	if filepath.IsAbs(c.BaseFolder) {
		return fmt.Errorf("base folder %q must be relative to the vault", c.BaseFolder)
	}
	c.BaseFolder = strings.Trim(filepath.ToSlash(c.BaseFolder), "/")
	if c.ConfigDir == "" {
		c.ConfigDir = DefaultConfigDir
	}

	if c.SyncDelay < 0 {
		return fmt.Errorf("sync delay must not be negative, got %d", c.SyncDelay)
	}
	if c.SyncDelay == 0 {
		c.SyncDelay = DefaultSyncDelaySeconds
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %d", c.PollInterval)
	}
	if c.BackupRetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative, got %d", c.BackupRetentionDays)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (c *Config) Save() error {
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// the file carries store credentials
	return os.WriteFile(c.Path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path

	return cfg, nil
}
