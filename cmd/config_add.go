package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/spf13/cobra"
)

var configAddCmd = &cobra.Command{
	Use:   "add <label> [start_url]",
	Short: "Create a new config, optionally starting at another series",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := strings.TrimSpace(args[0])
		store := config.DefaultStore()

		if _, err := os.Stat(store.Path(label)); err == nil {
			return fmt.Errorf("a config named %q already exists", label)
		}

		cfg := config.DefaultConfig()
		if len(args) == 2 {
			cfg.StartURL = args[1]
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		path, err := store.Save(label, cfg)
		if err != nil {
			return fmt.Errorf("failed to save YAML: %w", err)
		}

		fmt.Printf("Created new config: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddCmd)
}
