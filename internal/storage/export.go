// ABOUTME: Export and import functionality for location records
// ABOUTME: Supports YAML backup format and markdown export

package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/tagtrack/internal/models"
)

// BackupVersion is the current backup format version.
const BackupVersion = "2.0"

// BackupTool identifies backups written by this program.
const BackupTool = "tagtrack"

// Backup represents the YAML backup format.
type Backup struct {
	Version    string                  `yaml:"version"`
	ExportedAt time.Time               `yaml:"exported_at"`
	Tool       string                  `yaml:"tool"`
	Backend    string                  `yaml:"backend"`
	Locations  []models.LocationRecord `yaml:"locations"`
}

// DeviceHistory groups one device's records, newest first.
type DeviceHistory struct {
	DeviceID  string
	Locations []models.LocationRecord
}

// sortByID orders records oldest insertion first.
func sortByID(records []models.LocationRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}

// ExportToYAML exports all records to YAML format, ordered by id.
func ExportToYAML(ctx context.Context, repo Repository) ([]byte, error) {
	records, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	sortByID(records)

	backup := Backup{
		Version:    BackupVersion,
		ExportedAt: models.Normalize(now()),
		Tool:       BackupTool,
		Backend:    repo.Backend(),
		Locations:  records,
	}
	return yaml.Marshal(backup)
}

// ImportFromYAML restores records from a YAML backup and returns how many were written.
// Records are inserted in their original id order. The destination assigns new ids
// and recordedAt values; observedAt and every measurement are preserved.
func ImportFromYAML(ctx context.Context, repo Repository, data []byte) (int, error) {
	var backup Backup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return 0, fmt.Errorf("parse yaml: %w", err)
	}

	if backup.Version != BackupVersion {
		return 0, fmt.Errorf("unsupported backup version: %s (expected %s)", backup.Version, BackupVersion)
	}
	if backup.Tool != BackupTool {
		return 0, fmt.Errorf("wrong tool: %s (expected %s)", backup.Tool, BackupTool)
	}

	records := backup.Locations
	sortByID(records)

	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return i, fmt.Errorf("location %d: %w", rec.ID, err)
		}
	}

	for i, rec := range records {
		if _, err := repo.Insert(ctx, rec.Draft()); err != nil {
			return i, fmt.Errorf("insert location %d: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

func validateRecord(rec models.LocationRecord) error {
	if err := models.ValidateDeviceID(rec.DeviceID); err != nil {
		return err
	}
	if err := models.ValidateLatitude(rec.Latitude); err != nil {
		return err
	}
	if err := models.ValidateLongitude(rec.Longitude); err != nil {
		return err
	}
	if rec.ObservedAt.IsZero() {
		return fmt.Errorf("observed_at is required")
	}
	return nil
}

// GetDeviceHistories groups records by device, sorted by device id.
// A non-empty deviceID restricts the result to that device.
func GetDeviceHistories(ctx context.Context, repo Repository, deviceID string) ([]DeviceHistory, error) {
	if deviceID != "" {
		records, err := repo.ListByDevice(ctx, deviceID)
		if err != nil {
			return nil, fmt.Errorf("list locations for %s: %w", deviceID, err)
		}
		if len(records) == 0 {
			return []DeviceHistory{}, nil
		}
		return []DeviceHistory{{DeviceID: deviceID, Locations: records}}, nil
	}

	records, err := repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	byDevice := make(map[string][]models.LocationRecord)
	for _, r := range records {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	result := make([]DeviceHistory, 0, len(byDevice))
	for id, recs := range byDevice {
		models.SortNewestFirst(recs)
		result = append(result, DeviceHistory{DeviceID: id, Locations: recs})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeviceID < result[j].DeviceID })
	return result, nil
}

// ExportToMarkdown renders a per-device table of records.
// An empty deviceID exports every device.
func ExportToMarkdown(ctx context.Context, repo Repository, deviceID string, loc *time.Location) ([]byte, error) {
	histories, err := GetDeviceHistories(ctx, repo, deviceID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	var sb strings.Builder

	generated := now().In(loc)
	fmt.Fprintf(&sb, "# Location Export - %s\n\n", generated.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Generated: %s\n\n", generated.Format(time.RFC3339))

	if len(histories) == 0 {
		sb.WriteString("No locations recorded.\n")
		return []byte(sb.String()), nil
	}

	for _, h := range histories {
		fmt.Fprintf(&sb, "## %s\n\n", h.DeviceID)
		sb.WriteString("| ID | Observed | Coordinates | Altitude | Accuracy | RSSI |\n")
		sb.WriteString("|----|----------|-------------|----------|----------|------|\n")

		for _, r := range h.Locations {
			fmt.Fprintf(&sb, "| %d | %s | (%.6f, %.6f) | %s | %s | %s |\n",
				r.ID,
				r.ObservedAt.In(loc).Format("2006-01-02 15:04:05"),
				r.Latitude, r.Longitude,
				optionalFloat(r.Altitude, "%.1f m"),
				optionalFloat(r.Accuracy, "±%.1f m"),
				optionalInt(r.SignalStrength, "%d dBm"),
			)
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

func optionalFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func optionalInt(v *int, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
