package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var home, _ = os.UserHomeDir()

const (
	envPrefix      = "VAULTSYNC"
	configFileName = "config"
)

// loadConfig layers, lowest first: defaults, config file, .env + VAULTSYNC_* env, flags.
func loadConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	setDefaults()

	flags := cmd.Root().PersistentFlags()
	if flags.Changed("config") {
		configFilePath, _ := flags.GetString("config")
		viper.SetConfigFile(configFilePath)
	} else if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		viper.SetConfigFile(envPath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".vaultsync"))
		viper.AddConfigPath(filepath.Join(home, ".config", "vaultsync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("vault_dir", flags.Lookup("vault"))
	viper.BindPFlag("base_folder", flags.Lookup("base"))
	viper.BindPFlag("debug", flags.Lookup("debug"))

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

func setDefaults() {
	viper.SetDefault("config_dir", config.DefaultConfigDir)
	viper.SetDefault("auto_sync", true)
	viper.SetDefault("sync_delay", config.DefaultSyncDelaySeconds)
	viper.SetDefault("poll_interval", config.DefaultPollIntervalMinutes)
	viper.SetDefault("backup_retention_days", config.DefaultRetentionDays)
	viper.SetDefault("store.kind", "")
}

func viperDebug() bool {
	return viper.GetBool("debug")
}

// buildConfig reads the merged settings into a validated Config.
func buildConfig() (*config.Config, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = config.DefaultConfigPath
	}

	cfg := &config.Config{
		VaultDir:            viper.GetString("vault_dir"),
		BaseFolder:          viper.GetString("base_folder"),
		ConfigDir:           viper.GetString("config_dir"),
		Bidirectional:       viper.GetBool("bidirectional"),
		AutoSync:            viper.GetBool("auto_sync"),
		SyncDelay:           viper.GetInt("sync_delay"),
		PollInterval:        viper.GetInt("poll_interval"),
		BackupsEnabled:      viper.GetBool("backups_enabled"),
		BackupRetentionDays: viper.GetInt("backup_retention_days"),
		BackupBeforeSync:    viper.GetBool("backup_before_sync"),
		BackupSnapshot:      viper.GetBool("backup_snapshot"),
		StateDB:             viper.GetString("state_db"),
		Store:               buildStoreConfig(),
		Debug:               viper.GetBool("debug"),
		Path:                path,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildStoreConfig() *blob.Config {
	kind := blob.Kind(strings.ToLower(viper.GetString("store.kind")))

	switch kind {
	case blob.KindNone:
		return nil
	case blob.KindS3:
		return &blob.Config{
			Kind: kind,
			S3: &blob.S3Config{
				BucketName:    viper.GetString("store.s3.bucket"),
				Region:        viper.GetString("store.s3.region"),
				AccessKey:     viper.GetString("store.s3.access_key"),
				SecretKey:     viper.GetString("store.s3.secret_key"),
				Endpoint:      viper.GetString("store.s3.endpoint"),
				UseAccelerate: viper.GetBool("store.s3.use_accelerate"),
			},
		}
	case blob.KindHTTP:
		return &blob.Config{
			Kind: kind,
			HTTP: &blob.HTTPConfig{
				URL:   viper.GetString("store.http.url"),
				Token: viper.GetString("store.http.token"),
			},
		}
	default:
		return &blob.Config{Kind: kind}
	}
}
