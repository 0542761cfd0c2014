// ABOUTME: Location current command
// ABOUTME: Shows the most recent location for a device

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var currentCmd = &cobra.Command{
	Use:     "current <device>",
	Aliases: []string{"c"},
	Short:   "Get the latest location of a device",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]

		rec, found, err := service.LatestForDevice(commandContext(cmd), deviceID)
		if err != nil {
			return fmt.Errorf("failed to get location: %w", err)
		}
		if !found {
			return fmt.Errorf("no location found for '%s'", deviceID)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.FormatDeviceWithLatest(deviceID, &rec))
		fmt.Fprintf(out, "  %s\n", ui.FormatRecord(&rec, display))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(currentCmd)
}
