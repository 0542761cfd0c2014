// ABOUTME: Export command for generating GeoJSON, markdown, and YAML output
// ABOUTME: Supports device and time filtering and multiple geometry types

package main

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/tagtrack/internal/geojson"
	"github.com/harper/tagtrack/internal/models"
	"github.com/harper/tagtrack/internal/storage"
)

// durationRegex matches relative duration strings like "24h", "7d", "1w", "1m".
var durationRegex = regexp.MustCompile(`^(\d+)([hdwm])$`)

var exportCmd = &cobra.Command{
	Use:     "export [device]",
	Aliases: []string{"e"},
	Short:   "Export locations in various formats",
	Long: `Export locations as GeoJSON, Markdown, or YAML.

Examples:
  # Export all locations for a device as GeoJSON
  tagtrack export tag-harper --format geojson

  # Export as markdown table
  tagtrack export tag-harper --format markdown

  # Export with time filter (relative)
  tagtrack export tag-harper --since 24h
  tagtrack export tag-harper --since 7d

  # Export with time filter (absolute)
  tagtrack export tag-harper --from 2024-12-01 --to 2024-12-14

  # Export every device as tracks
  tagtrack export --geometry line --since 7d

  # Save to file
  tagtrack export tag-harper --output map.geojson`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "geojson" && format != "markdown" && format != "yaml" {
			return fmt.Errorf("unsupported format: %s (use 'geojson', 'markdown', or 'yaml')", format)
		}

		geometry, _ := cmd.Flags().GetString("geometry")
		if geometry != "points" && geometry != "line" {
			return fmt.Errorf("unsupported geometry: %s (use 'points' or 'line')", geometry)
		}

		var deviceID string
		if len(args) == 1 {
			deviceID = args[0]
		}

		ctx := commandContext(cmd)
		output, _ := cmd.Flags().GetString("output")

		switch format {
		case "markdown":
			data, err := storage.ExportToMarkdown(ctx, repo, deviceID, display)
			if err != nil {
				return fmt.Errorf("failed to generate markdown: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), output, data, "markdown")
		case "yaml":
			data, err := storage.ExportToYAML(ctx, repo)
			if err != nil {
				return fmt.Errorf("failed to generate YAML: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), output, data, "YAML")
		}

		from, to, err := timeWindow(cmd)
		if err != nil {
			return err
		}
		records, err := selectRecords(ctx, deviceID, from, to)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no locations found")
		}

		var fc *geojson.FeatureCollection
		if geometry == "line" {
			fc = geojson.ToLineFeatureCollection(records)
		} else {
			fc = geojson.ToPointsFeatureCollection(records)
		}

		jsonBytes, err := fc.ToJSONIndent()
		if err != nil {
			return fmt.Errorf("failed to generate GeoJSON: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), output, append(jsonBytes, '\n'), fmt.Sprintf("%d locations", len(records)))
	},
}

// timeWindow resolves --since, --from, and --to. Zero times mean unbounded.
func timeWindow(cmd *cobra.Command) (from, to time.Time, err error) {
	since, _ := cmd.Flags().GetString("since")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	if since != "" {
		from, err = parseDuration(since, time.Now())
		if err != nil {
			return from, to, fmt.Errorf("invalid --since value: %w", err)
		}
		return from, to, nil
	}
	if fromStr != "" {
		from, _, err = parseTime(fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from value: %w", err)
		}
	}
	if toStr != "" {
		var dateOnly bool
		to, dateOnly, err = parseTime(toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to value: %w", err)
		}
		if dateOnly {
			to = endOfDay(to)
		}
	}
	return from, to, nil
}

// selectRecords fetches records for deviceID (all devices when empty) within [from, to].
func selectRecords(ctx context.Context, deviceID string, from, to time.Time) ([]models.LocationRecord, error) {
	var (
		records []models.LocationRecord
		err     error
	)
	switch {
	case from.IsZero() && to.IsZero() && deviceID != "":
		records, err = service.DeviceLocations(ctx, deviceID)
	case from.IsZero() && to.IsZero():
		records, err = service.AllLocations(ctx)
	default:
		if from.IsZero() {
			from = time.Unix(0, 0).UTC()
		}
		if to.IsZero() {
			to = time.Now()
		}
		records, err = service.LocationsInRange(ctx, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}

	if deviceID == "" {
		return records, nil
	}
	filtered := records[:0]
	for _, r := range records {
		if r.DeviceID == deviceID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// parseDuration parses relative duration strings like "24h", "7d", "1w" into a start time before now.
func parseDuration(s string, now time.Time) (time.Time, error) {
	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid duration format (use e.g., 24h, 7d, 1w)")
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number in duration '%s': %w", s, err)
	}

	var duration time.Duration
	switch matches[2] {
	case "h":
		duration = time.Duration(num) * time.Hour
	case "d":
		duration = time.Duration(num) * 24 * time.Hour
	case "w":
		duration = time.Duration(num) * 7 * 24 * time.Hour
	case "m":
		duration = time.Duration(num) * 30 * 24 * time.Hour
	}

	return now.Add(-duration), nil
}

func init() {
	exportCmd.Flags().StringP("format", "f", "geojson", "output format (geojson, markdown, yaml)")
	exportCmd.Flags().StringP("geometry", "g", "points", "geometry type (points, line)")
	exportCmd.Flags().String("since", "", "relative time filter (e.g., 24h, 7d, 1w)")
	exportCmd.Flags().String("from", "", "start time (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().String("to", "", "end time (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
