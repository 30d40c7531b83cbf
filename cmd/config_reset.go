package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/spf13/cobra"
)

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the current config to default values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := config.DefaultStore()
		label, err := store.CurrentLabel()
		if err != nil {
			return err
		}

		path, err := store.Save(label, config.DefaultConfig())
		if err != nil {
			return err
		}

		fmt.Printf("Reset active config: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}
