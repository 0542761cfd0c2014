// ABOUTME: Backend-independent conformance tests for Repository implementations
// ABOUTME: Every backend runs the same ordering, range, count, and identity checks

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

// opener creates a fresh, empty repository for one test.
type opener func(t *testing.T) Repository

var baseTime = time.Date(2024, 12, 14, 15, 0, 0, 0, time.UTC)

// setClock pins the store clock for the duration of a test.
func setClock(t *testing.T, fn func() time.Time) {
	t.Helper()
	prev := now
	now = fn
	t.Cleanup(func() { now = prev })
}

func draftAt(deviceID string, observedAt time.Time) models.LocationDraft {
	return models.LocationDraft{
		DeviceID:   deviceID,
		Latitude:   35.6812,
		Longitude:  139.7671,
		ObservedAt: observedAt,
	}
}

func mustInsert(t *testing.T, repo Repository, draft models.LocationDraft) models.LocationRecord {
	t.Helper()
	rec, err := repo.Insert(context.Background(), draft)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return rec
}

func ids(records []models.LocationRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []models.LocationRecord, want ...int64) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got ids %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("got ids %v, want %v", gotIDs, want)
		}
	}
}

// runRepositoryTests exercises the full Repository contract against one backend.
func runRepositoryTests(t *testing.T, open opener) {
	ctx := context.Background()

	t.Run("InsertAssignsIdentity", func(t *testing.T) {
		repo := open(t)
		rec := mustInsert(t, repo, draftAt("D1", baseTime))

		if rec.ID <= 0 {
			t.Errorf("expected positive id, got %d", rec.ID)
		}
		if rec.RecordedAt.IsZero() {
			t.Error("expected recordedAt to be set")
		}

		got, found, err := repo.GetByID(ctx, rec.ID)
		if err != nil || !found {
			t.Fatalf("GetByID: found=%v err=%v", found, err)
		}
		if got.ID != rec.ID || !got.RecordedAt.Equal(rec.RecordedAt) {
			t.Errorf("re-read changed identity: got %+v, want %+v", got, rec)
		}
		if !got.ObservedAt.Equal(baseTime) {
			t.Errorf("got observedAt %v, want %v", got.ObservedAt, baseTime)
		}
	})

	t.Run("InsertDefaultsObservedAt", func(t *testing.T) {
		repo := open(t)
		clockTime := time.Date(2025, 3, 1, 8, 30, 0, 123456789, time.UTC)
		setClock(t, func() time.Time { return clockTime })
		insertTime := clockTime.Truncate(time.Microsecond)

		rec := mustInsert(t, repo, models.LocationDraft{DeviceID: "D1", Latitude: 1, Longitude: 2})
		if !rec.ObservedAt.Equal(insertTime) {
			t.Errorf("got observedAt %v, want %v", rec.ObservedAt, insertTime)
		}
		if !rec.RecordedAt.Equal(insertTime) {
			t.Errorf("got recordedAt %v, want %v", rec.RecordedAt, insertTime)
		}

		got, _, _ := repo.GetByID(ctx, rec.ID)
		if !got.ObservedAt.Equal(insertTime) {
			t.Errorf("stored observedAt %v, want %v", got.ObservedAt, insertTime)
		}
	})

	t.Run("IDsIncreaseAndAreNotReused", func(t *testing.T) {
		repo := open(t)
		first := mustInsert(t, repo, draftAt("D1", baseTime))
		second := mustInsert(t, repo, draftAt("D1", baseTime))
		if second.ID <= first.ID {
			t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
		}

		if _, err := repo.DeleteByID(ctx, second.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		third := mustInsert(t, repo, draftAt("D1", baseTime))
		if third.ID <= second.ID {
			t.Errorf("id %d reused after delete (previous %d)", third.ID, second.ID)
		}

		if err := repo.DeleteAll(ctx); err != nil {
			t.Fatalf("delete all: %v", err)
		}
		fourth := mustInsert(t, repo, draftAt("D1", baseTime))
		if fourth.ID <= third.ID {
			t.Errorf("id %d reused after delete all (previous %d)", fourth.ID, third.ID)
		}
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		repo := open(t)
		_, found, err := repo.GetByID(ctx, 424242)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected not found")
		}
	})

	t.Run("OptionalFieldsRoundTrip", func(t *testing.T) {
		repo := open(t)
		alt, acc, rssi := 45.25, 3.5, -71
		withAll := mustInsert(t, repo, models.LocationDraft{
			DeviceID: "D1", Latitude: 1, Longitude: 2,
			Altitude: &alt, Accuracy: &acc, SignalStrength: &rssi,
			ObservedAt: baseTime,
		})
		bare := mustInsert(t, repo, draftAt("D2", baseTime))

		got, _, _ := repo.GetByID(ctx, withAll.ID)
		if got.Altitude == nil || *got.Altitude != alt {
			t.Errorf("altitude: got %v", got.Altitude)
		}
		if got.Accuracy == nil || *got.Accuracy != acc {
			t.Errorf("accuracy: got %v", got.Accuracy)
		}
		if got.SignalStrength == nil || *got.SignalStrength != rssi {
			t.Errorf("signal strength: got %v", got.SignalStrength)
		}

		got, _, _ = repo.GetByID(ctx, bare.ID)
		if got.Altitude != nil || got.Accuracy != nil || got.SignalStrength != nil {
			t.Errorf("expected nil optional fields, got %+v", got)
		}
	})

	t.Run("BoundaryCoordinatesRoundTrip", func(t *testing.T) {
		repo := open(t)
		cases := [][2]float64{{-90, -180}, {90, 180}, {-90, 180}, {90, -180}}
		for _, c := range cases {
			rec := mustInsert(t, repo, models.LocationDraft{DeviceID: "edge", Latitude: c[0], Longitude: c[1], ObservedAt: baseTime})
			got, found, err := repo.GetByID(ctx, rec.ID)
			if err != nil || !found {
				t.Fatalf("GetByID: found=%v err=%v", found, err)
			}
			if got.Latitude != c[0] || got.Longitude != c[1] {
				t.Errorf("got (%v, %v), want (%v, %v)", got.Latitude, got.Longitude, c[0], c[1])
			}
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		repo := open(t)
		all, err := repo.ListAll(ctx)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected empty store, got %d", len(all))
		}
		for i := 0; i < 5; i++ {
			mustInsert(t, repo, draftAt(fmt.Sprintf("D%d", i), baseTime.Add(time.Duration(i)*time.Minute)))
		}
		all, err = repo.ListAll(ctx)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		if len(all) != 5 {
			t.Errorf("got %d records, want 5", len(all))
		}
	})

	t.Run("ListRecentCapsAndOrders", func(t *testing.T) {
		repo := open(t)
		for i := 0; i < 60; i++ {
			// Interleave timestamps so insertion order differs from observation order.
			offset := time.Duration((i*37)%60) * time.Minute
			mustInsert(t, repo, draftAt("D1", baseTime.Add(offset)))
		}

		recent, err := repo.ListRecent(ctx, DefaultRecentLimit)
		if err != nil {
			t.Fatalf("list recent: %v", err)
		}
		if len(recent) != DefaultRecentLimit {
			t.Fatalf("got %d records, want %d", len(recent), DefaultRecentLimit)
		}
		for i := 1; i < len(recent); i++ {
			if recent[i].ObservedAt.After(recent[i-1].ObservedAt) {
				t.Fatalf("records not in descending order at %d", i)
			}
		}
		if !recent[0].ObservedAt.Equal(baseTime.Add(59 * time.Minute)) {
			t.Errorf("newest record has observedAt %v", recent[0].ObservedAt)
		}
	})

	t.Run("ListRecentFewerThanLimit", func(t *testing.T) {
		repo := open(t)
		for i := 0; i < 3; i++ {
			mustInsert(t, repo, draftAt("D1", baseTime.Add(time.Duration(i)*time.Second)))
		}
		recent, err := repo.ListRecent(ctx, DefaultRecentLimit)
		if err != nil {
			t.Fatalf("list recent: %v", err)
		}
		if len(recent) != 3 {
			t.Errorf("got %d records, want 3", len(recent))
		}

		none, err := repo.ListRecent(ctx, 0)
		if err != nil {
			t.Fatalf("list recent zero: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("limit 0 returned %d records", len(none))
		}
	})

	t.Run("SameTimestampTieBreak", func(t *testing.T) {
		repo := open(t)
		a := mustInsert(t, repo, draftAt("D1", baseTime))
		b := mustInsert(t, repo, draftAt("D2", baseTime))
		c := mustInsert(t, repo, draftAt("D1", baseTime))
		older := mustInsert(t, repo, draftAt("D1", baseTime.Add(-time.Hour)))

		recent, err := repo.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("list recent: %v", err)
		}
		assertIDs(t, recent, c.ID, b.ID, a.ID, older.ID)

		byDevice, err := repo.ListByDevice(ctx, "D1")
		if err != nil {
			t.Fatalf("list by device: %v", err)
		}
		assertIDs(t, byDevice, c.ID, a.ID, older.ID)

		inRange, err := repo.ListByTimeRange(ctx, baseTime, baseTime)
		if err != nil {
			t.Fatalf("list by range: %v", err)
		}
		assertIDs(t, inRange, c.ID, b.ID, a.ID)

		latest, found, err := repo.GetLatestByDevice(ctx, "D1")
		if err != nil || !found {
			t.Fatalf("latest: found=%v err=%v", found, err)
		}
		if latest.ID != c.ID {
			t.Errorf("latest tie-break: got id %d, want %d", latest.ID, c.ID)
		}
	})

	t.Run("DeviceHistoryScenario", func(t *testing.T) {
		repo := open(t)
		t0 := mustInsert(t, repo, draftAt("D1", baseTime))
		t10 := mustInsert(t, repo, draftAt("D1", baseTime.Add(10*time.Minute)))
		t20 := mustInsert(t, repo, draftAt("D1", baseTime.Add(20*time.Minute)))
		mustInsert(t, repo, draftAt("D2", baseTime.Add(time.Hour)))

		history, err := repo.ListByDevice(ctx, "D1")
		if err != nil {
			t.Fatalf("list by device: %v", err)
		}
		assertIDs(t, history, t20.ID, t10.ID, t0.ID)
		for _, r := range history {
			if r.DeviceID != "D1" {
				t.Errorf("foreign record %d for device %s", r.ID, r.DeviceID)
			}
		}

		latest, found, err := repo.GetLatestByDevice(ctx, "D1")
		if err != nil || !found {
			t.Fatalf("latest: found=%v err=%v", found, err)
		}
		if latest.ID != t20.ID {
			t.Errorf("latest: got id %d, want %d", latest.ID, t20.ID)
		}
	})

	t.Run("UnknownDevice", func(t *testing.T) {
		repo := open(t)
		mustInsert(t, repo, draftAt("D1", baseTime))

		history, err := repo.ListByDevice(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if history == nil || len(history) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", history)
		}

		_, found, err := repo.GetLatestByDevice(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected no latest record for unknown device")
		}
	})

	t.Run("TimeRangeIsInclusive", func(t *testing.T) {
		repo := open(t)
		before := mustInsert(t, repo, draftAt("D1", baseTime.Add(-time.Second)))
		atStart := mustInsert(t, repo, draftAt("D1", baseTime))
		middle := mustInsert(t, repo, draftAt("D2", baseTime.Add(30*time.Minute)))
		atEnd := mustInsert(t, repo, draftAt("D3", baseTime.Add(time.Hour)))
		after := mustInsert(t, repo, draftAt("D1", baseTime.Add(time.Hour+time.Microsecond)))

		got, err := repo.ListByTimeRange(ctx, baseTime, baseTime.Add(time.Hour))
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, atEnd.ID, middle.ID, atStart.ID)

		for _, r := range got {
			if r.ID == before.ID || r.ID == after.ID {
				t.Errorf("record %d outside range returned", r.ID)
			}
		}
	})

	t.Run("TimeRangeStartEqualsEnd", func(t *testing.T) {
		repo := open(t)
		exact := mustInsert(t, repo, draftAt("D1", baseTime))
		mustInsert(t, repo, draftAt("D1", baseTime.Add(time.Millisecond)))

		got, err := repo.ListByTimeRange(ctx, baseTime, baseTime)
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, exact.ID)
	})

	t.Run("TimeRangeAcceptsOtherZones", func(t *testing.T) {
		repo := open(t)
		rec := mustInsert(t, repo, draftAt("D1", baseTime))
		jst := time.FixedZone("JST", 9*60*60)

		got, err := repo.ListByTimeRange(ctx, baseTime.In(jst), baseTime.In(jst))
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, rec.ID)
	})

	t.Run("TimeRangeSubMicrosecondBounds", func(t *testing.T) {
		repo := open(t)
		rec := mustInsert(t, repo, draftAt("D1", baseTime))

		got, err := repo.ListByTimeRange(ctx, baseTime.Add(time.Nanosecond), baseTime.Add(time.Hour))
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got)

		got, err = repo.ListByTimeRange(ctx, baseTime.Add(-time.Hour), baseTime.Add(999*time.Nanosecond))
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, rec.ID)
	})

	t.Run("ExtremeObservedAtRoundTrip", func(t *testing.T) {
		repo := open(t)
		times := []time.Time{
			models.MinObservedAt.Add(time.Second),
			time.Date(1600, 6, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
			models.MaxObservedAt,
		}
		var inserted []models.LocationRecord
		for _, ts := range times {
			inserted = append(inserted, mustInsert(t, repo, draftAt("D1", ts)))
		}

		for i, rec := range inserted {
			got, found, err := repo.GetByID(ctx, rec.ID)
			if err != nil || !found {
				t.Fatalf("get %d: found=%v err=%v", rec.ID, found, err)
			}
			if !got.ObservedAt.Equal(times[i]) {
				t.Errorf("record %d: reread observedAt %v, want %v", rec.ID, got.ObservedAt, times[i])
			}
		}

		got, err := repo.ListByTimeRange(ctx, time.Time{}, time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, inserted[3].ID, inserted[2].ID, inserted[1].ID, inserted[0].ID)

		got, err = repo.ListByTimeRange(ctx, time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC), models.MaxObservedAt)
		if err != nil {
			t.Fatalf("range: %v", err)
		}
		assertIDs(t, got, inserted[3].ID, inserted[2].ID)

		latest, _, _ := repo.GetLatestByDevice(ctx, "D1")
		if latest.ID != inserted[3].ID {
			t.Errorf("latest got id %d, want %d", latest.ID, inserted[3].ID)
		}
	})

	t.Run("ReturnedRecordsAreIndependent", func(t *testing.T) {
		repo := open(t)
		alt, acc, rssi := 12.5, 3.0, -60
		draft := draftAt("D1", baseTime)
		draft.Altitude, draft.Accuracy, draft.SignalStrength = &alt, &acc, &rssi
		rec := mustInsert(t, repo, draft)

		*rec.Altitude = 1000
		first, _, _ := repo.GetByID(ctx, rec.ID)
		*first.Accuracy = 1000
		*first.SignalStrength = 0
		listed, _ := repo.ListAll(ctx)
		*listed[0].Altitude = 2000

		got, _, err := repo.GetByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if *got.Altitude != 12.5 || *got.Accuracy != 3.0 || *got.SignalStrength != -60 {
			t.Errorf("stored record changed through a returned value: alt=%v acc=%v rssi=%v",
				*got.Altitude, *got.Accuracy, *got.SignalStrength)
		}
		latest, _, _ := repo.GetLatestByDevice(ctx, "D1")
		if *latest.Altitude != 12.5 {
			t.Errorf("latest altitude %v, want 12.5", *latest.Altitude)
		}
	})

	t.Run("TimeRangeInvalid", func(t *testing.T) {
		repo := open(t)
		_, err := repo.ListByTimeRange(ctx, baseTime.Add(time.Second), baseTime)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("got error %v, want ErrInvalidRange", err)
		}
	})

	t.Run("CountDistinctDevices", func(t *testing.T) {
		repo := open(t)
		n, err := repo.CountDistinctDevices(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Errorf("empty store: got %d devices", n)
		}

		for i := 0; i < 100; i++ {
			mustInsert(t, repo, draftAt(fmt.Sprintf("device-%03d", i), baseTime))
		}
		n, _ = repo.CountDistinctDevices(ctx)
		if n != 100 {
			t.Errorf("got %d devices, want 100", n)
		}

		if err := repo.DeleteAll(ctx); err != nil {
			t.Fatalf("delete all: %v", err)
		}
		for i := 0; i < 25; i++ {
			mustInsert(t, repo, draftAt("solo", baseTime.Add(time.Duration(i)*time.Second)))
		}
		n, _ = repo.CountDistinctDevices(ctx)
		if n != 1 {
			t.Errorf("got %d devices, want 1", n)
		}
	})

	t.Run("DeleteByID", func(t *testing.T) {
		repo := open(t)
		keep := mustInsert(t, repo, draftAt("D1", baseTime))
		gone := mustInsert(t, repo, draftAt("D1", baseTime))

		deleted, err := repo.DeleteByID(ctx, gone.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if !deleted {
			t.Error("expected deletion to be reported")
		}
		if _, found, _ := repo.GetByID(ctx, gone.ID); found {
			t.Error("deleted record still present")
		}

		deleted, err = repo.DeleteByID(ctx, gone.ID)
		if err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if deleted {
			t.Error("second delete should report nothing deleted")
		}
		if _, found, _ := repo.GetByID(ctx, keep.ID); !found {
			t.Error("unrelated record removed")
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		repo := open(t)
		for i := 0; i < 10; i++ {
			mustInsert(t, repo, draftAt("D1", baseTime))
		}
		if err := repo.DeleteAll(ctx); err != nil {
			t.Fatalf("delete all: %v", err)
		}
		all, _ := repo.ListAll(ctx)
		if len(all) != 0 {
			t.Errorf("got %d records after delete all", len(all))
		}
	})

	t.Run("ConcurrentInsertsGetUniqueIDs", func(t *testing.T) {
		repo := open(t)
		const workers, perWorker = 8, 25

		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := make(map[int64]bool)
		errs := make(chan error, workers*perWorker)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					rec, err := repo.Insert(ctx, draftAt(fmt.Sprintf("W%d", w), baseTime))
					if err != nil {
						errs <- err
						continue
					}
					mu.Lock()
					if seen[rec.ID] {
						errs <- fmt.Errorf("duplicate id %d", rec.ID)
					}
					seen[rec.ID] = true
					mu.Unlock()
				}
			}(w)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Error(err)
		}
		if len(seen) != workers*perWorker {
			t.Errorf("got %d unique ids, want %d", len(seen), workers*perWorker)
		}
		n, _ := repo.CountDistinctDevices(ctx)
		if n != workers {
			t.Errorf("got %d devices, want %d", n, workers)
		}
	})

	t.Run("ClosedStoreIsUnavailable", func(t *testing.T) {
		repo := open(t)
		if err := repo.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		_, err := repo.Insert(ctx, draftAt("D1", baseTime))
		if !errors.Is(err, ErrStorageUnavailable) {
			t.Errorf("insert after close: got %v, want ErrStorageUnavailable", err)
		}
		_, err = repo.ListRecent(ctx, 10)
		if !errors.Is(err, ErrStorageUnavailable) {
			t.Errorf("list after close: got %v, want ErrStorageUnavailable", err)
		}
	})
}
