// ABOUTME: Location remove command
// ABOUTME: Deletes one location report by id after confirmation

package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/ui"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove one location by id",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid location id %q", args[0])
		}

		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()

		rec, found, err := service.LocationByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get location: %w", err)
		}
		if !found {
			return fmt.Errorf("location %d not found", id)
		}

		if ok, _ := cmd.Flags().GetBool("confirm"); !ok {
			if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Remove %s?", ui.FormatRecord(&rec, display))) {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		deleted, err := service.DeleteLocation(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to remove location: %w", err)
		}
		if !deleted {
			return fmt.Errorf("location %d not found", id)
		}

		fmt.Fprintln(out, color.GreenString("✓ Removed location %d", id))
		return nil
	},
}

func init() {
	removeCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(removeCmd)
}
