// ABOUTME: Location show command
// ABOUTME: Prints every field of one location report

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one location by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid location id %q", args[0])
		}

		rec, found, err := service.LocationByID(commandContext(cmd), id)
		if err != nil {
			return fmt.Errorf("failed to get location: %w", err)
		}
		if !found {
			return fmt.Errorf("location %d not found", id)
		}

		fmt.Fprint(cmd.OutOrStdout(), ui.FormatRecordDetail(&rec, display))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
