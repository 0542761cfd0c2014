// ABOUTME: Location add command
// ABOUTME: Records a location report for a device with optional measurements and timestamp

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add <device> --lat <latitude> --lng <longitude>",
	Aliases: []string{"a"},
	Short:   "Record a location for a device",
	Long: `Record a location report for a device.

Examples:
  tagtrack add tag-harper --lat 41.8781 --lng -87.6298
  tagtrack add tag-harper --lat 41.8781 --lng -87.6298 --rssi -70 --accuracy 5
  tagtrack add tag-harper --lat 41.8781 --lng -87.6298 --at 2024-12-14T15:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		lat, _ := flags.GetFloat64("lat")
		lng, _ := flags.GetFloat64("lng")
		sub := locations.Submission{DeviceID: args[0], Latitude: &lat, Longitude: &lng}

		if flags.Changed("alt") {
			alt, _ := flags.GetFloat64("alt")
			sub.Altitude = &alt
		}
		if flags.Changed("accuracy") {
			acc, _ := flags.GetFloat64("accuracy")
			sub.Accuracy = &acc
		}
		if flags.Changed("rssi") {
			rssi, _ := flags.GetInt("rssi")
			sub.SignalStrength = &rssi
		}
		if atStr, _ := flags.GetString("at"); atStr != "" {
			observed, err := locations.ParseTimestamp(atStr)
			if err != nil {
				return fmt.Errorf("invalid timestamp format (use RFC3339, e.g., 2024-12-14T15:00:00Z): %w", err)
			}
			sub.ObservedAt = &observed
		}

		rec, err := service.SubmitLocation(commandContext(cmd), sub)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.GreenString("✓ Recorded location for %s", rec.DeviceID))
		fmt.Fprintf(out, "  %s\n", ui.FormatRecord(&rec, display))
		return nil
	},
}

func init() {
	addCmd.Flags().Float64("lat", 0, "latitude (-90 to 90)")
	addCmd.Flags().Float64("lng", 0, "longitude (-180 to 180)")
	addCmd.Flags().Float64("alt", 0, "altitude in meters")
	addCmd.Flags().Float64("accuracy", 0, "horizontal accuracy in meters")
	addCmd.Flags().Int("rssi", 0, "BLE signal strength in dBm")
	addCmd.Flags().String("at", "", "observation time (RFC3339, e.g., 2024-12-14T15:00:00Z)")
	_ = addCmd.MarkFlagRequired("lat")
	_ = addCmd.MarkFlagRequired("lng")

	rootCmd.AddCommand(addCmd)
}
