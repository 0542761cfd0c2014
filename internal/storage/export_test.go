// ABOUTME: Tests for export and import functionality
// ABOUTME: Covers YAML backup format and markdown export

package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

func TestExportToYAML(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rssi := -64
	mustInsert(t, db, models.LocationDraft{
		DeviceID: "tag-harper", Latitude: 41.8781, Longitude: -87.6298,
		SignalStrength: &rssi, ObservedAt: baseTime,
	})

	data, err := ExportToYAML(ctx, db)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	yamlStr := string(data)

	if !strings.Contains(yamlStr, `version: "2.0"`) {
		t.Error("missing version header")
	}
	if !strings.Contains(yamlStr, "tool: tagtrack") {
		t.Error("missing tool header")
	}
	if !strings.Contains(yamlStr, "backend: sqlite") {
		t.Error("missing backend header")
	}
	if !strings.Contains(yamlStr, "exported_at:") {
		t.Error("missing exported_at header")
	}

	if !strings.Contains(yamlStr, "device_id: tag-harper") {
		t.Error("missing device id")
	}
	if !strings.Contains(yamlStr, "latitude: 41.8781") {
		t.Error("missing latitude")
	}
	if !strings.Contains(yamlStr, "signal_strength: -64") {
		t.Error("missing signal strength")
	}
	if strings.Contains(yamlStr, "altitude:") {
		t.Error("absent altitude should be omitted")
	}
}

func TestImportFromYAML(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	yaml := `version: "2.0"
exported_at: "2026-01-31T12:00:00Z"
tool: tagtrack
backend: badger

locations:
  - id: 9
    device_id: "tag-harper"
    latitude: 40.7128
    longitude: -74.006
    observed_at: "2024-12-14T11:00:00Z"
    recorded_at: "2024-12-14T11:00:01Z"
  - id: 4
    device_id: "tag-harper"
    latitude: 41.8781
    longitude: -87.6298
    accuracy: 4.5
    observed_at: "2024-12-14T10:00:00Z"
    recorded_at: "2024-12-14T10:00:01Z"
`

	n, err := ImportFromYAML(ctx, db, []byte(yaml))
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	history, err := db.ListByDevice(ctx, "tag-harper")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d records, want 2", len(history))
	}
	if history[0].Latitude != 40.7128 {
		t.Errorf("got latitude %f, want 40.7128", history[0].Latitude)
	}
	if !history[1].ObservedAt.Equal(time.Date(2024, 12, 14, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("observedAt not preserved: %v", history[1].ObservedAt)
	}
	if history[1].Accuracy == nil || *history[1].Accuracy != 4.5 {
		t.Errorf("accuracy not preserved: %v", history[1].Accuracy)
	}
	// Imported in original id order, so the older backup id gets the lower new id.
	if history[1].ID >= history[0].ID {
		t.Errorf("expected id 4 to be imported before id 9, got new ids %d and %d", history[1].ID, history[0].ID)
	}
}

func TestImportFromYAML_InvalidVersion(t *testing.T) {
	db := testDB(t)

	yaml := `version: "1.0"
tool: tagtrack
locations: []
`

	if _, err := ImportFromYAML(context.Background(), db, []byte(yaml)); err == nil {
		t.Error("expected error for invalid version")
	}
}

func TestImportFromYAML_WrongTool(t *testing.T) {
	db := testDB(t)

	yaml := `version: "2.0"
tool: position
locations: []
`

	if _, err := ImportFromYAML(context.Background(), db, []byte(yaml)); err == nil {
		t.Error("expected error for wrong tool")
	}
}

func TestImportFromYAML_RejectsInvalidRecordsBeforeWriting(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	yaml := `version: "2.0"
tool: tagtrack
locations:
  - id: 1
    device_id: "ok"
    latitude: 10
    longitude: 10
    observed_at: "2024-12-14T10:00:00Z"
  - id: 2
    device_id: "bad"
    latitude: 95
    longitude: 10
    observed_at: "2024-12-14T10:00:00Z"
`

	if _, err := ImportFromYAML(ctx, db, []byte(yaml)); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
	all, _ := db.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("partial import wrote %d records", len(all))
	}
}

func TestYAMLRoundTripAcrossBackends(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	alt := 12.5
	mustInsert(t, src, models.LocationDraft{DeviceID: "A", Latitude: -90, Longitude: 180, Altitude: &alt, ObservedAt: baseTime})
	mustInsert(t, src, draftAt("B", baseTime.Add(time.Second)))

	data, err := ExportToYAML(ctx, src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := testDB(t)
	if _, err := ImportFromYAML(ctx, dst, data); err != nil {
		t.Fatalf("import: %v", err)
	}

	recent, _ := dst.ListRecent(ctx, 10)
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].DeviceID != "B" || recent[1].DeviceID != "A" {
		t.Errorf("unexpected order: %v, %v", recent[0], recent[1])
	}
	if recent[1].Altitude == nil || *recent[1].Altitude != 12.5 {
		t.Errorf("altitude lost: %v", recent[1].Altitude)
	}
	if recent[1].Latitude != -90 || recent[1].Longitude != 180 {
		t.Errorf("boundary coordinates changed: %v", recent[1])
	}
}

func TestExportToMarkdown(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	rssi := -70
	mustInsert(t, db, models.LocationDraft{
		DeviceID: "tag-harper", Latitude: 41.8781, Longitude: -87.6298,
		SignalStrength: &rssi, ObservedAt: time.Date(2024, 12, 14, 10, 0, 0, 0, time.UTC),
	})

	data, err := ExportToMarkdown(ctx, db, "", nil)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	md := string(data)

	if !strings.Contains(md, "# Location Export") {
		t.Error("missing header")
	}
	if !strings.Contains(md, "## tag-harper") {
		t.Error("missing device section")
	}
	if !strings.Contains(md, "2024-12-14 10:00:00") {
		t.Error("missing observation date")
	}
	if !strings.Contains(md, "(41.878100, -87.629800)") {
		t.Error("missing coordinates")
	}
	if !strings.Contains(md, "-70 dBm") {
		t.Error("missing signal strength")
	}
}

func TestExportToMarkdown_DisplayZone(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustInsert(t, db, draftAt("D1", time.Date(2024, 12, 14, 15, 30, 0, 0, time.UTC)))

	jst := time.FixedZone("JST", 9*60*60)
	data, err := ExportToMarkdown(ctx, db, "D1", jst)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if !strings.Contains(string(data), "2024-12-15 00:30:00") {
		t.Errorf("observation not rendered in display zone:\n%s", data)
	}
}

func TestExportToMarkdown_Empty(t *testing.T) {
	db := testDB(t)

	data, err := ExportToMarkdown(context.Background(), db, "", nil)
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if !strings.Contains(string(data), "No locations recorded.") {
		t.Error("missing empty-state message")
	}
}

func TestGetDeviceHistories(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mustInsert(t, db, draftAt("zeta", baseTime))
	mustInsert(t, db, draftAt("alpha", baseTime))
	newest := mustInsert(t, db, draftAt("alpha", baseTime.Add(time.Hour)))

	histories, err := GetDeviceHistories(ctx, db, "")
	if err != nil {
		t.Fatalf("failed to group: %v", err)
	}
	if len(histories) != 2 {
		t.Fatalf("got %d devices, want 2", len(histories))
	}
	if histories[0].DeviceID != "alpha" || histories[1].DeviceID != "zeta" {
		t.Errorf("devices not sorted: %s, %s", histories[0].DeviceID, histories[1].DeviceID)
	}
	if histories[0].Locations[0].ID != newest.ID {
		t.Errorf("device history not newest first")
	}

	none, err := GetDeviceHistories(ctx, db, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d histories for unknown device", len(none))
	}
}
