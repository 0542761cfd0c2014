// ABOUTME: In-memory storage implementation for location records
// ABOUTME: Sharded concurrent map with an atomic identifier counter

package storage

import (
	"context"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/harper/tagtrack/internal/models"
)

// MemoryStore implements Repository without persistence.
// Returned records never share pointers with the stored copies.
// Records live in a sharded map so single-record operations never contend on a global lock.
type MemoryStore struct {
	records cmap.ConcurrentMap[int64, models.LocationRecord]
	lastID  atomic.Int64
	closed  atomic.Bool
}

// Compile-time check that MemoryStore implements Repository.
var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: cmap.NewWithCustomShardingFunction[int64, models.LocationRecord](shardID),
	}
}

func shardID(id int64) uint32 {
	// Fibonacci hashing spreads sequential ids across shards.
	h := uint64(id) * 0x9E3779B97F4A7C15
	return uint32(h >> 32)
}

// Backend returns the backend name.
func (s *MemoryStore) Backend() string { return BackendMemory }

// Close marks the store unavailable. Records are discarded.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	s.records.Clear()
	return nil
}

func (s *MemoryStore) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Insert stores the draft under the next identifier.
func (s *MemoryStore) Insert(_ context.Context, draft models.LocationDraft) (models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return models.LocationRecord{}, err
	}
	rec := models.NewRecord(s.lastID.Add(1), draft, now())
	s.records.Set(rec.ID, rec)
	return rec.Clone(), nil
}

// GetByID returns the record with the given id.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (models.LocationRecord, bool, error) {
	if err := s.check(); err != nil {
		return models.LocationRecord{}, false, err
	}
	rec, ok := s.records.Get(id)
	return rec.Clone(), ok, nil
}

// ListAll returns every record in no particular order.
func (s *MemoryStore) ListAll(_ context.Context) ([]models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.snapshot(nil), nil
}

// ListRecent returns the limit most recently observed records.
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return newestFirst(s.snapshot(nil), limit), nil
}

// ListByDevice returns a device's records, newest first.
func (s *MemoryStore) ListByDevice(_ context.Context, deviceID string) ([]models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	records := s.snapshot(func(r models.LocationRecord) bool { return r.DeviceID == deviceID })
	models.SortNewestFirst(records)
	return records, nil
}

// GetLatestByDevice returns the newest record for a device.
func (s *MemoryStore) GetLatestByDevice(_ context.Context, deviceID string) (models.LocationRecord, bool, error) {
	if err := s.check(); err != nil {
		return models.LocationRecord{}, false, err
	}
	var latest models.LocationRecord
	found := false
	for item := range s.records.IterBuffered() {
		if item.Val.DeviceID != deviceID {
			continue
		}
		if !found || models.NewerFirst(item.Val, latest) {
			latest = item.Val
			found = true
		}
	}
	return latest.Clone(), found, nil
}

// ListByTimeRange returns records observed within [start, end], newest first.
func (s *MemoryStore) ListByTimeRange(_ context.Context, start, end time.Time) ([]models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	records := s.snapshot(func(r models.LocationRecord) bool {
		return !r.ObservedAt.Before(start) && !r.ObservedAt.After(end)
	})
	models.SortNewestFirst(records)
	return records, nil
}

// CountDistinctDevices counts unique device ids.
func (s *MemoryStore) CountDistinctDevices(_ context.Context) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	devices := make(map[string]struct{})
	for item := range s.records.IterBuffered() {
		devices[item.Val.DeviceID] = struct{}{}
	}
	return int64(len(devices)), nil
}

// DeleteByID removes a record and reports whether it existed.
func (s *MemoryStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	_, existed := s.records.Pop(id)
	return existed, nil
}

// DeleteAll removes every record. The identifier counter is not reset.
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	s.records.Clear()
	return nil
}

func (s *MemoryStore) snapshot(keep func(models.LocationRecord) bool) []models.LocationRecord {
	records := make([]models.LocationRecord, 0, s.records.Count())
	for item := range s.records.IterBuffered() {
		if keep == nil || keep(item.Val) {
			records = append(records, item.Val.Clone())
		}
	}
	return records
}
