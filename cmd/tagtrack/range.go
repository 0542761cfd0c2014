// ABOUTME: Location range command
// ABOUTME: Lists locations observed within an inclusive time window

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/ui"
)

var rangeCmd = &cobra.Command{
	Use:   "range --from <time> --to <time>",
	Short: "List locations observed between two times",
	Long: `List locations observed between --from and --to, inclusive, newest first.

Times accept RFC3339, zone-less ISO-8601 (read as UTC), or YYYY-MM-DD.
A date-only --to covers the whole day.

Examples:
  tagtrack range --from 2024-12-14T15:00:00Z --to 2024-12-14T18:00:00Z
  tagtrack range --from 2024-12-01 --to 2024-12-14`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		from, _, err := parseTime(fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}
		to, dateOnly, err := parseTime(toStr)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}
		if dateOnly {
			to = endOfDay(to)
		}

		records, err := service.LocationsInRange(commandContext(cmd), from, to)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No locations in range.")
			return nil
		}
		for i := range records {
			fmt.Fprintln(out, ui.FormatRecord(&records[i], display))
		}
		return nil
	},
}

// parseTime accepts any timestamp ParseTimestamp does, plus YYYY-MM-DD in UTC.
func parseTime(s string) (t time.Time, dateOnly bool, err error) {
	if t, err := locations.ParseTimestamp(s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date format (use YYYY-MM-DD or RFC3339)")
}

func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}

func init() {
	rangeCmd.Flags().String("from", "", "range start")
	rangeCmd.Flags().String("to", "", "range end")
	_ = rangeCmd.MarkFlagRequired("from")
	_ = rangeCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(rangeCmd)
}
