// ABOUTME: Import command for restoring data from YAML backup
// ABOUTME: Re-inserts every backed-up location as a new record

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import data from a YAML backup",
	Long: `Import location reports from a YAML backup file.

This restores data from a backup created with 'tagtrack backup'. Each
record is stored again with a new id; observation times are preserved.

WARNING: This will add to existing data, not replace it.
Use 'tagtrack purge' first if you want a clean import.

Examples:
  tagtrack import locations.yaml
  tagtrack import ~/backups/locations-20241214.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]
		out := cmd.OutOrStdout()

		data, err := os.ReadFile(filename) //nolint:gosec // import path is chosen by the user
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		if ok, _ := cmd.Flags().GetBool("confirm"); !ok {
			if !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Import data from '%s'?", filename)) {
				fmt.Fprintln(out, "Canceled.")
				return nil
			}
		}

		ctx := commandContext(cmd)
		n, err := storage.ImportFromYAML(ctx, repo, data)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		stats, err := service.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to count locations: %w", err)
		}

		fmt.Fprintln(out, color.GreenString("Import complete: %d locations imported", n))
		fmt.Fprintf(out, "  %d locations, %d devices in database\n", stats.TotalCount, stats.DeviceCount)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
}
