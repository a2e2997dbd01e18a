package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/vaultsync/internal/client"
	"github.com/openmined/vaultsync/internal/config"
	"github.com/openmined/vaultsync/internal/utils"
	"github.com/openmined/vaultsync/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:     "vaultsync",
	Short:   "Keep a local vault and an object store in sync",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		if viperDebug() {
			logLevel.Set(slog.LevelDebug)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "vaultsync config file")
	rootCmd.PersistentFlags().StringP("vault", "v", "", "vault directory")
	rootCmd.PersistentFlags().StringP("base", "b", "", "base folder inside the vault")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "daemon",
		Short: "Watch the vault and sync continuously (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	})
}

func runDaemon(cmd *cobra.Command) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	slog.Info("vaultsync", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	defer slog.Info("Bye!")
	if err := c.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon start", "error", err)
		return err
	}
	return nil
}

func setupLogging(logFile string) (func() error, error) {
	if err := utils.EnsureDir(filepath.Dir(logFile)); err != nil {
		return nil, err
	}

	rotated := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	logInterceptor := utils.NewLogInterceptor(rotated)

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the interceptor stamps each line
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
	return logInterceptor.Close, nil
}

func main() {
	logLevel.Set(slog.LevelInfo)

	closeLog, err := setupLogging(config.DefaultLogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeLog()
		os.Exit(1)
	}
}
