// ABOUTME: Location list command
// ABOUTME: Lists the most recent location reports across all devices

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "recent"},
	Short:   "List the 50 most recent locations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := service.RecentLocations(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to list locations: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No locations recorded yet. Use 'tagtrack add' to add one.")
			return nil
		}

		for i := range records {
			fmt.Fprintln(out, ui.FormatRecord(&records[i], display))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
