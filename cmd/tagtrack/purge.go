// ABOUTME: Purge command
// ABOUTME: Deletes every stored location report after confirmation

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all locations",
	Long: `Delete every stored location report. This cannot be undone.

Consider 'tagtrack backup' first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()

		stats, err := service.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to count locations: %w", err)
		}

		if ok, _ := cmd.Flags().GetBool("confirm"); !ok {
			prompt := fmt.Sprintf("Delete all %d locations from %d devices?", stats.TotalCount, stats.DeviceCount)
			if !confirm(cmd.InOrStdin(), out, prompt) {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		if err := service.PurgeAll(ctx); err != nil {
			return err
		}

		fmt.Fprintln(out, color.GreenString("✓ Deleted %d locations", stats.TotalCount))
		return nil
	},
}

func init() {
	purgeCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(purgeCmd)
}
