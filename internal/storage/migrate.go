// ABOUTME: Data migration between location storage backends
// ABOUTME: Copies every record from source to destination repository in id order

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrDestinationNotEmpty is returned when migrating into a store that already holds records.
var ErrDestinationNotEmpty = errors.New("destination already contains locations")

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Devices   int
	Locations int
}

// MigrateData copies all records from src to dst.
// Records are written oldest id first so relative insertion order, and with it the
// same-timestamp tie-break, survives the move. The destination assigns its own ids.
// Unless force is set, dst must be empty.
func MigrateData(ctx context.Context, src, dst Repository, force bool) (*MigrateSummary, error) {
	if !force {
		existing, err := dst.ListRecent(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("check destination: %w", err)
		}
		if len(existing) > 0 {
			return nil, ErrDestinationNotEmpty
		}
	}

	records, err := src.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source locations: %w", err)
	}
	sortByID(records)

	summary := &MigrateSummary{}
	devices := make(map[string]struct{})
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := dst.Insert(ctx, rec.Draft()); err != nil {
			return summary, fmt.Errorf("copy location %d: %w", rec.ID, err)
		}
		devices[rec.DeviceID] = struct{}{}
		summary.Locations++
	}
	summary.Devices = len(devices)

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
