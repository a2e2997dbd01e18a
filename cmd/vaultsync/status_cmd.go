package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/openmined/vaultsync/internal/blob"
	"github.com/openmined/vaultsync/internal/client"
	"github.com/openmined/vaultsync/internal/config"
	"github.com/openmined/vaultsync/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vault, store and last sync information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			c, err := client.New(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Status()
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), cfg, st)
			return nil
		},
	}
}

func statusLine(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelCell.Render(label)+value)
}

func printStatus(w io.Writer, cfg *config.Config, st client.Status) {
	fmt.Fprintln(w, bold.Render("vaultsync status"))

	statusLine(w, "config", cfg.Path)
	statusLine(w, "vault", st.VaultDir)
	base := st.BaseFolder
	if base == "" {
		base = gray.Render("(whole vault)")
	}
	statusLine(w, "base folder", base)
	statusLine(w, "files", fmt.Sprintf("%d (%d syncable)", st.LocalFiles, st.Eligible))

	if st.Configured {
		statusLine(w, "store", green.Render(st.StoreKind)+" "+gray.Render(storeTarget(cfg.Store)))
	} else {
		statusLine(w, "store", red.Render("not configured"))
	}

	if st.Synced {
		statusLine(w, "last sync", humanize.Time(st.LastSyncTime)+" "+gray.Render(st.LastSyncTime.Format("2006-01-02 15:04:05")))
	} else {
		statusLine(w, "last sync", gray.Render("never"))
	}
	if st.InProgress {
		statusLine(w, "in progress", cyan.Render("yes"))
	}

	mode := "one-way"
	if cfg.Bidirectional {
		mode = "bidirectional"
	}
	statusLine(w, "mode", mode)

	backups := "off"
	if cfg.BackupsEnabled {
		backups = fmt.Sprintf("on, keep %d days", cfg.BackupRetentionDays)
		if cfg.BackupRetentionDays == 0 {
			backups = "on, never expire"
		}
	}
	statusLine(w, "backups", backups)
}

func storeTarget(cfg *blob.Config) string {
	switch {
	case cfg == nil:
		return ""
	case cfg.S3 != nil:
		target := "s3://" + cfg.S3.BucketName
		if cfg.S3.Endpoint != "" {
			target += " @ " + cfg.S3.Endpoint
		}
		return target + " key=" + utils.MaskSecret(cfg.S3.AccessKey)
	case cfg.HTTP != nil:
		target := cfg.HTTP.URL
		if cfg.HTTP.Token != "" {
			target += " token=" + utils.MaskSecret(cfg.HTTP.Token)
		}
		return target
	default:
		return ""
	}
}
