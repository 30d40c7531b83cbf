package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangapdf/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different configuration profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.DefaultStore()

		label := ""
		if len(args) == 1 {
			label = args[0]
		} else {
			picked, err := pickConfig(store)
			if err != nil {
				return err
			}
			label = picked
		}

		if err := store.Switch(label); err != nil {
			return err
		}

		fmt.Println("Switched to:", label)
		return nil
	},
}

func pickConfig(store *config.Store) (string, error) {
	list, err := store.List()
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no configs available, run `mangapdf config init` first")
	}

	items := make([]string, len(list))
	for i, c := range list {
		items[i] = c.Label
		if c.Active {
			items[i] += "  (active)"
		}
	}

	prompt := promptui.Select{
		Label: "Select config",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled")
	}

	return list[idx].Label, nil
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
