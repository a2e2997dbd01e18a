package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/config"
	vsync "github.com/openmined/vaultsync/internal/sync"
	"github.com/openmined/vaultsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_PrintsDetailedVersion(t *testing.T) {
	cmd := &cobra.Command{Use: "vaultsync"}
	cmd.AddCommand(newVersionCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.Detailed(), strings.TrimSpace(out.String()))
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name    string
		res     vsync.Result
		wantErr bool
		want    string
	}{
		{"ok", vsync.Result{Op: vsync.OpSyncAll, OK: true, Total: 2, Succeeded: 2, Uploaded: 2, Message: "sync complete: 2/2 files"}, false, "uploaded 2"},
		{"partial", vsync.Result{Op: vsync.OpSyncAll, OK: true, Total: 2, Succeeded: 1, Failed: 1, Message: "sync partially complete"}, false, "partially"},
		{"busy", vsync.Result{Op: vsync.OpSyncFile, Busy: true, Message: "sync already running"}, true, "already running"},
		{"unconfigured", vsync.Result{Op: vsync.OpSyncAll, Unconfigured: true, Message: "object store not configured"}, true, "not configured"},
		{"failed", vsync.Result{Op: vsync.OpSyncAll, Total: 1, Failed: 1, Message: "sync partially complete: 0/1"}, true, "0/1"},
		{"nothing", vsync.Result{Op: vsync.OpSyncMissing, Message: "nothing to upload"}, false, "nothing to upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := printResult(&out, tt.res)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestBuildConfigFromFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	tmp := t.TempDir()
	vaultDir := filepath.Join(tmp, "vault")
	cfgPath := filepath.Join(tmp, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
		"vault_dir": "`+filepath.ToSlash(vaultDir)+`",
		"base_folder": "Notes",
		"bidirectional": true,
		"store": {"kind": "s3", "s3": {"bucket": "notes", "region": "eu-west-1", "access_key": "ak", "secret_key": "sk"}}
	}`), 0o600))

	t.Setenv("VAULTSYNC_SYNC_DELAY", "9")
	t.Setenv("VAULTSYNC_STORE_S3_ENDPOINT", "http://127.0.0.1:9000")

	cmd := &cobra.Command{Use: "vaultsync"}
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "")
	cmd.PersistentFlags().StringP("vault", "v", "", "")
	cmd.PersistentFlags().StringP("base", "b", "", "")
	cmd.PersistentFlags().Bool("debug", false, "")
	require.NoError(t, cmd.PersistentFlags().Set("config", cfgPath))

	require.NoError(t, loadConfig(cmd))
	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, cfgPath, cfg.Path)
	assert.Equal(t, "Notes", cfg.BaseFolder)
	assert.True(t, cfg.Bidirectional)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, 9, cfg.SyncDelay)
	assert.Equal(t, config.DefaultRetentionDays, cfg.BackupRetentionDays)
	require.NotNil(t, cfg.Store)
	assert.Equal(t, blob.KindS3, cfg.Store.Kind)
	assert.Equal(t, "notes", cfg.Store.S3.BucketName)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Store.S3.Endpoint)
}

func TestBuildConfigFlagsOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	tmp := t.TempDir()
	cmd := &cobra.Command{Use: "vaultsync"}
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "")
	cmd.PersistentFlags().StringP("vault", "v", "", "")
	cmd.PersistentFlags().StringP("base", "b", "", "")
	cmd.PersistentFlags().Bool("debug", false, "")
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(tmp, "missing.json")))
	require.NoError(t, cmd.PersistentFlags().Set("vault", tmp))
	require.NoError(t, cmd.PersistentFlags().Set("base", "Work/"))

	require.NoError(t, loadConfig(cmd))
	cfg, err := buildConfig()
	require.NoError(t, err)

	assert.Equal(t, "Work", cfg.BaseFolder)
	assert.Nil(t, cfg.Store)
}

func TestStoreTargetMasksSecrets(t *testing.T) {
	target := storeTarget(blob.WithS3Config("notes", "us-east-1", "AKIAEXAMPLE", "secret", false))
	assert.Contains(t, target, "s3://notes")
	assert.Contains(t, target, "AKIA*****")
	assert.NotContains(t, target, "EXAMPLE")

	assert.Equal(t, "https://objects.example.com token=abcd*****", storeTarget(blob.WithHTTPConfig("https://objects.example.com", "abcdefgh")))
	assert.Empty(t, storeTarget(nil))
}
