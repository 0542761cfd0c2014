// ABOUTME: Tests for storage migration between location backends
// ABOUTME: Covers sqlite-to-badger, badger-to-sqlite, data integrity, and roundtrips

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

// seedLocationData populates a storage backend with a representative data set
// and returns the inserted records in insertion order.
func seedLocationData(t *testing.T, src Repository) []models.LocationRecord {
	t.Helper()

	alt, acc, rssi := 180.0, 5.0, -58
	drafts := []models.LocationDraft{
		{DeviceID: "tag-harper", Latitude: 41.8781, Longitude: -87.6298, Accuracy: &acc,
			ObservedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
		{DeviceID: "tag-harper", Latitude: 40.7128, Longitude: -74.0060, SignalStrength: &rssi,
			ObservedAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)},
		// Same observation time as the previous record; only insertion order separates them.
		{DeviceID: "tag-harper", Latitude: 34.0522, Longitude: -118.2437, Altitude: &alt,
			ObservedAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)},
		{DeviceID: "tag-car", Latitude: 42.0, Longitude: -88.0,
			ObservedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
	}

	records := make([]models.LocationRecord, 0, len(drafts))
	for _, d := range drafts {
		rec, err := src.Insert(context.Background(), d)
		mustNoError(t, err)
		records = append(records, rec)
	}
	return records
}

func mustNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func sameOptionalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// verifyMigratedLocationData compares query results of src and dst.
// Ids differ between stores, so records are matched by position in the ordered result.
func verifyMigratedLocationData(t *testing.T, dst Repository, seeded []models.LocationRecord) {
	t.Helper()
	ctx := context.Background()

	want := append([]models.LocationRecord(nil), seeded...)
	models.SortNewestFirst(want)

	got, err := dst.ListRecent(ctx, len(want)+10)
	mustNoError(t, err)
	if len(got) != len(want) {
		t.Fatalf("destination has %d records, want %d", len(got), len(want))
	}

	for i := range want {
		w, g := want[i], got[i]
		if g.DeviceID != w.DeviceID {
			t.Errorf("record %d device: want %q, got %q", i, w.DeviceID, g.DeviceID)
		}
		if g.Latitude != w.Latitude || g.Longitude != w.Longitude {
			t.Errorf("record %d coordinates: want (%f, %f), got (%f, %f)",
				i, w.Latitude, w.Longitude, g.Latitude, g.Longitude)
		}
		if !g.ObservedAt.Equal(w.ObservedAt) {
			t.Errorf("record %d observedAt: want %v, got %v", i, w.ObservedAt, g.ObservedAt)
		}
		if !sameOptionalFloat(g.Altitude, w.Altitude) || !sameOptionalFloat(g.Accuracy, w.Accuracy) {
			t.Errorf("record %d optional measurements differ: want %+v, got %+v", i, w, g)
		}
		if (g.SignalStrength == nil) != (w.SignalStrength == nil) {
			t.Errorf("record %d signal strength nil mismatch", i)
		} else if g.SignalStrength != nil && *g.SignalStrength != *w.SignalStrength {
			t.Errorf("record %d signal strength: want %d, got %d", i, *w.SignalStrength, *g.SignalStrength)
		}
	}

	n, err := dst.CountDistinctDevices(ctx)
	mustNoError(t, err)
	if n != 2 {
		t.Errorf("destination device count: want 2, got %d", n)
	}
}

func TestMigrateData_SqliteToBadger(t *testing.T) {
	src, err := NewSQLiteDB(filepath.Join(t.TempDir(), "tagtrack.db"))
	if err != nil {
		t.Fatalf("create source store: %v", err)
	}
	defer src.Close()

	seeded := seedLocationData(t, src)

	dst, err := NewBadgerStore(filepath.Join(t.TempDir(), "badger"))
	if err != nil {
		t.Fatalf("create destination store: %v", err)
	}
	defer dst.Close()

	summary, err := MigrateData(context.Background(), src, dst, false)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	if summary.Devices != 2 {
		t.Errorf("summary devices: want 2, got %d", summary.Devices)
	}
	if summary.Locations != len(seeded) {
		t.Errorf("summary locations: want %d, got %d", len(seeded), summary.Locations)
	}

	verifyMigratedLocationData(t, dst, seeded)
}

func TestMigrateData_BadgerToSqlite(t *testing.T) {
	src, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("create source store: %v", err)
	}
	defer src.Close()

	seeded := seedLocationData(t, src)

	dst := testDB(t)
	if _, err := MigrateData(context.Background(), src, dst, false); err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	verifyMigratedLocationData(t, dst, seeded)
}

func TestMigrateData_EmptySource(t *testing.T) {
	src := testDB(t)
	dst := NewMemoryStore()

	summary, err := MigrateData(context.Background(), src, dst, false)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	if summary.Devices != 0 || summary.Locations != 0 {
		t.Errorf("expected all zero counts for empty source, got devices=%d locations=%d",
			summary.Devices, summary.Locations)
	}
}

func TestMigrateData_RefusesNonEmptyDestination(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	seedLocationData(t, src)

	dst := testDB(t)
	mustInsert(t, dst, draftAt("already-here", baseTime))

	_, err := MigrateData(ctx, src, dst, false)
	if !errors.Is(err, ErrDestinationNotEmpty) {
		t.Fatalf("got %v, want ErrDestinationNotEmpty", err)
	}

	summary, err := MigrateData(ctx, src, dst, true)
	if err != nil {
		t.Fatalf("forced migration failed: %v", err)
	}
	if summary.Locations != 4 {
		t.Errorf("forced migration copied %d records, want 4", summary.Locations)
	}
}

func TestMigrateRoundTrip_SqliteToBadgerToSqlite(t *testing.T) {
	ctx := context.Background()

	original := testDB(t)
	seeded := seedLocationData(t, original)

	mid, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("create badger store: %v", err)
	}
	defer mid.Close()

	if _, err := MigrateData(ctx, original, mid, false); err != nil {
		t.Fatalf("MigrateData (sqlite->badger) failed: %v", err)
	}

	final, err := NewSQLiteDB(filepath.Join(t.TempDir(), "final.db"))
	if err != nil {
		t.Fatalf("create final store: %v", err)
	}
	defer final.Close()

	if _, err := MigrateData(ctx, mid, final, false); err != nil {
		t.Fatalf("MigrateData (badger->sqlite) failed: %v", err)
	}

	verifyMigratedLocationData(t, final, seeded)
}

func TestMigrateData_HonoursCancellation(t *testing.T) {
	src := NewMemoryStore()
	seedLocationData(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MigrateData(ctx, src, NewMemoryStore(), false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestIsDirNonEmpty_Empty(t *testing.T) {
	emptyDir := t.TempDir()
	nonEmpty, err := IsDirNonEmpty(emptyDir)
	if err != nil {
		t.Fatalf("IsDirNonEmpty on empty dir: %v", err)
	}
	if nonEmpty {
		t.Error("expected empty dir to be reported as empty")
	}
}

func TestIsDirNonEmpty_NonEmpty(t *testing.T) {
	nonEmptyDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(nonEmptyDir, "file.txt"), []byte("data"), 0644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	nonEmpty, err := IsDirNonEmpty(nonEmptyDir)
	if err != nil {
		t.Fatalf("IsDirNonEmpty on non-empty dir: %v", err)
	}
	if !nonEmpty {
		t.Error("expected non-empty dir to be reported as non-empty")
	}
}

func TestIsDirNonEmpty_NonExistent(t *testing.T) {
	nonEmpty, err := IsDirNonEmpty(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("IsDirNonEmpty on non-existent dir: %v", err)
	}
	if nonEmpty {
		t.Error("expected non-existent dir to be reported as empty")
	}
}
