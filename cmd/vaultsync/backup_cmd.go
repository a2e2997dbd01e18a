package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/vaultsync/internal/client"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newBackupCmd())
}

func newBackupCmd() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage backup markers in the object store",
	}

	backupCmd.AddCommand(&cobra.Command{
		Use:   "create [folder]",
		Short: "Create a backup of the vault or of one folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				m, err := c.Backups().CreateBackup(ctx, folder)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), green.Render("backup created")+" "+m.Timestamp)
				return nil
			})
		},
	})

	backupCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				markers, err := c.Backups().ListBackups(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(markers) == 0 {
					fmt.Fprintln(w, gray.Render("no backups"))
					return nil
				}
				for _, m := range markers {
					folder := m.FolderPath
					if folder == "" {
						folder = "(whole vault)"
					}
					age := ""
					if t, err := m.Time(); err == nil {
						age = humanize.Time(t)
					}
					fmt.Fprintf(w, "%s  %s  %s\n", cyan.Render(m.Timestamp), folder, gray.Render(age))
				}
				return nil
			})
		},
	})

	backupCmd.AddCommand(&cobra.Command{
		Use:   "delete <timestamp>",
		Short: "Delete one backup and every object under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				n, err := c.Backups().DeleteBackup(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d objects)\n", green.Render("deleted"), args[0], n)
				return nil
			})
		},
	})

	var days int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete backups older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				retention := c.Config().BackupRetentionDays
				if cmd.Flags().Changed("days") {
					retention = days
				}
				if retention <= 0 {
					fmt.Fprintln(cmd.OutOrStdout(), gray.Render("retention is 0, backups never expire"))
					return nil
				}

				n, err := c.Backups().CleanupOldBackups(ctx, retention)
				if err != nil {
					return err
				}
				cutoff := time.Now().AddDate(0, 0, -retention)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d backups older than %s\n", green.Render("removed"), n, humanize.Time(cutoff))
				return nil
			})
		},
	}
	cleanupCmd.Flags().IntVar(&days, "days", 0, "retention in days (defaults to backup_retention_days)")
	backupCmd.AddCommand(cleanupCmd)

	return backupCmd
}
