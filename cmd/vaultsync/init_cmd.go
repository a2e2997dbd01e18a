package main

import (
	"fmt"

	"github.com/openmined/vaultsync/internal/utils"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings (flags, env, defaults) to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			if flags := cmd.Root().PersistentFlags(); flags.Changed("config") {
				cfg.Path, _ = flags.GetString("config")
			}
			if utils.FileExists(cfg.Path) && !force {
				return fmt.Errorf("config %s already exists, use --force to overwrite", cfg.Path)
			}

			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green.Render("config written")+" "+cfg.Path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")

	return initCmd
}
