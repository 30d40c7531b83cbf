package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := config.DefaultStore()
		defaultPath := store.Path(config.DefaultLabel)

		if _, err := os.Stat(defaultPath); err == nil {
			fmt.Println("Configuration already exists at:")
			fmt.Println("  ", defaultPath)
			fmt.Println("Use `mangapdf config reset` to recreate it.")
			return nil
		}

		fmt.Println("Default configuration:")
		config.DefaultConfig().Print(os.Stdout)
		fmt.Println()

		if !confirm(fmt.Sprintf("Create Default config at %s? [y/N]: ", defaultPath)) {
			fmt.Println("Aborted.")
			return nil
		}

		path, err := store.Init()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Println("Config created at:", path)
		fmt.Println("This config is now active (label: Default).")
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Print(prompt)

	reader := bufio.NewReader(os.Stdin)
	resp, _ := reader.ReadString('\n')
	resp = strings.TrimSpace(strings.ToLower(resp))

	return resp == "y" || resp == "yes"
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
