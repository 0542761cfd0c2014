// ABOUTME: Badger key-value storage backend for location records
// ABOUTME: Records are JSON values keyed by big-endian id; ids come from a Badger sequence

package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/harper/tagtrack/internal/models"
)

var (
	locationPrefix = []byte("location:")
	sequenceKey    = []byte("seq:location")
)

// sequenceBandwidth is how many ids are leased from disk at a time.
const sequenceBandwidth = 100

// BadgerStore implements Repository on an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	closed atomic.Bool
}

// Compile-time check that BadgerStore implements Repository.
var _ Repository = (*BadgerStore)(nil)

// NewBadgerStore opens a Badger database in dir. An empty dir opens an in-memory database.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence(sequenceKey, sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// Backend returns the backend name.
func (s *BadgerStore) Backend() string { return BackendBadger }

// Close returns unused leased ids and closes the database.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	releaseErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return releaseErr
}

func (s *BadgerStore) check() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func locationKey(id int64) []byte {
	key := make([]byte, len(locationPrefix)+8)
	copy(key, locationPrefix)
	binary.BigEndian.PutUint64(key[len(locationPrefix):], uint64(id))
	return key
}

// Insert stores the draft under the next sequence value.
func (s *BadgerStore) Insert(_ context.Context, draft models.LocationDraft) (models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return models.LocationRecord{}, err
	}
	next, err := s.seq.Next()
	if err != nil {
		return models.LocationRecord{}, unavailable("next location id", err)
	}
	// Sequences start at zero; ids start at one like the SQL backends.
	rec := models.NewRecord(int64(next)+1, draft, now())

	data, err := json.Marshal(rec)
	if err != nil {
		return models.LocationRecord{}, fmt.Errorf("marshal location: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(locationKey(rec.ID), data)
	})
	if err != nil {
		return models.LocationRecord{}, unavailable("insert location", err)
	}
	return rec, nil
}

// GetByID retrieves a record by its id.
func (s *BadgerStore) GetByID(_ context.Context, id int64) (models.LocationRecord, bool, error) {
	if err := s.check(); err != nil {
		return models.LocationRecord{}, false, err
	}
	var rec models.LocationRecord
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(locationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return models.LocationRecord{}, false, unavailable("get location", err)
	}
	return rec, found, nil
}

// ListAll returns every record in id order.
func (s *BadgerStore) ListAll(_ context.Context) ([]models.LocationRecord, error) {
	return s.scan("list locations", nil)
}

// ListRecent returns the limit most recently observed records.
func (s *BadgerStore) ListRecent(_ context.Context, limit int) ([]models.LocationRecord, error) {
	records, err := s.scan("list recent locations", nil)
	if err != nil {
		return nil, err
	}
	return newestFirst(records, limit), nil
}

// ListByDevice returns a device's records, newest first.
func (s *BadgerStore) ListByDevice(_ context.Context, deviceID string) ([]models.LocationRecord, error) {
	records, err := s.scan("list device locations", func(r models.LocationRecord) bool {
		return r.DeviceID == deviceID
	})
	if err != nil {
		return nil, err
	}
	models.SortNewestFirst(records)
	return records, nil
}

// GetLatestByDevice returns the newest record for a device.
func (s *BadgerStore) GetLatestByDevice(ctx context.Context, deviceID string) (models.LocationRecord, bool, error) {
	records, err := s.ListByDevice(ctx, deviceID)
	if err != nil {
		return models.LocationRecord{}, false, err
	}
	if len(records) == 0 {
		return models.LocationRecord{}, false, nil
	}
	return records[0], true, nil
}

// ListByTimeRange returns records observed within [start, end], newest first.
func (s *BadgerStore) ListByTimeRange(_ context.Context, start, end time.Time) ([]models.LocationRecord, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	records, err := s.scan("list locations in range", func(r models.LocationRecord) bool {
		return !r.ObservedAt.Before(start) && !r.ObservedAt.After(end)
	})
	if err != nil {
		return nil, err
	}
	models.SortNewestFirst(records)
	return records, nil
}

// CountDistinctDevices counts unique device ids.
func (s *BadgerStore) CountDistinctDevices(_ context.Context) (int64, error) {
	devices := make(map[string]struct{})
	_, err := s.scan("count devices", func(r models.LocationRecord) bool {
		devices[r.DeviceID] = struct{}{}
		return false
	})
	if err != nil {
		return 0, err
	}
	return int64(len(devices)), nil
}

// DeleteByID removes a record and reports whether it existed.
func (s *BadgerStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	key := locationKey(id)
	for {
		deleted := false
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			deleted = true
			return txn.Delete(key)
		})
		// A concurrent delete of the same key committed first; re-read to see it gone.
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, unavailable("delete location", err)
		}
		return deleted, nil
	}
}

// DeleteAll drops every record. The id sequence is kept.
func (s *BadgerStore) DeleteAll(_ context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.db.DropPrefix(locationPrefix); err != nil {
		return unavailable("delete all locations", err)
	}
	return nil
}

// scan iterates all records, keeping those accepted by keep (all when keep is nil).
func (s *BadgerStore) scan(op string, keep func(models.LocationRecord) bool) ([]models.LocationRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	records := []models.LocationRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(locationPrefix); it.ValidForPrefix(locationPrefix); it.Next() {
			var rec models.LocationRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if keep == nil || keep(rec) {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(op, err)
	}
	return records, nil
}
