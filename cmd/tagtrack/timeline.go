// ABOUTME: Location timeline command
// ABOUTME: Shows the location history for a device, newest first

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var timelineCmd = &cobra.Command{
	Use:     "timeline <device>",
	Aliases: []string{"t"},
	Short:   "Get location history for a device",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]

		records, err := service.DeviceLocations(commandContext(cmd), deviceID)
		if err != nil {
			return fmt.Errorf("failed to get timeline: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintf(out, "%s has no location history\n", color.GreenString(deviceID))
			return nil
		}

		fmt.Fprintf(out, "%s timeline:\n", color.GreenString(deviceID))
		for i := range records {
			fmt.Fprintln(out, ui.FormatRecordForTimeline(&records[i], display))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
}
