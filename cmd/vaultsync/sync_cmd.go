package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/openmined/vaultsync/internal/client"
	vsync "github.com/openmined/vaultsync/internal/sync"
	"github.com/openmined/vaultsync/internal/vault"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newSyncMissingCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newRemoveCmd())
}

// withClient opens the client for one command and releases the vault lock afterwards.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	c, err := client.New(cfg)
	if err != nil {
		return err
	}
	if err := c.Open(); err != nil {
		return err
	}
	defer c.Close()

	return fn(cmd.Context(), c)
}

func runEngineOp(cmd *cobra.Command, op func(ctx context.Context, e *vsync.SyncEngine) vsync.Result) error {
	return withClient(cmd, func(ctx context.Context, c *client.Client) error {
		return printResult(cmd.OutOrStdout(), op(ctx, c.Engine()))
	})
}

// printResult renders res and turns a failed operation into an error for the exit code.
func printResult(w io.Writer, res vsync.Result) error {
	switch {
	case res.Busy, res.Unconfigured:
		fmt.Fprintln(w, yellow.Render(res.Message))
		return errors.New(res.Message)
	case !res.OK && res.Total > 0:
		fmt.Fprintln(w, red.Render(res.Message))
		return fmt.Errorf("%s failed", res.Op)
	case !res.OK:
		fmt.Fprintln(w, gray.Render(res.Message))
		return nil
	case res.Partial():
		fmt.Fprintln(w, yellow.Render(res.Message))
	default:
		fmt.Fprintln(w, green.Render(res.Message))
	}

	if res.Uploaded+res.Downloaded+res.Created+res.Deleted > 0 {
		fmt.Fprintln(w, gray.Render(fmt.Sprintf("uploaded %d, downloaded %d, created %d, deleted %d, skipped %d",
			res.Uploaded, res.Downloaded, res.Created, res.Deleted, res.Skipped)))
	}
	return nil
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one full reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineOp(cmd, func(ctx context.Context, e *vsync.SyncEngine) vsync.Result {
				return e.SyncAllFiles(ctx)
			})
		},
	}
}

func newSyncMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-missing",
		Short: "Upload local files that have no remote object",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineOp(cmd, func(ctx context.Context, e *vsync.SyncEngine) vsync.Result {
				return e.SyncMissingFiles(ctx)
			})
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Download remote changes into the vault (bidirectional only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineOp(cmd, func(ctx context.Context, e *vsync.SyncEngine) vsync.Result {
				return e.DownloadRemoteChanges(ctx)
			})
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <path>",
		Short: "Upload one vault file now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				file := c.Vault().Exists(filepath.ToSlash(args[0]))
				if file == nil {
					return fmt.Errorf("no such file in vault: %s", args[0])
				}
				return printResult(cmd.OutOrStdout(), c.Engine().SyncFile(ctx, file))
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete the remote object of a vault path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				file := vault.NewFile(filepath.ToSlash(args[0]))
				return printResult(cmd.OutOrStdout(), c.Engine().DeleteRemoteForFile(ctx, file))
			})
		},
	}
}
