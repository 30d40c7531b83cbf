package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective config or manage config profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, used, err := config.LoadMerged(config.DefaultStore(), config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded config from:\n  %s\n\n", used)
		cfg.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
