// ABOUTME: Location stats command
// ABOUTME: Prints total location and distinct device counts

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show location and device counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := service.Stats(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to compute stats: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStats(stats.TotalCount, stats.DeviceCount, stats.ComputedAt, display))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
