// ABOUTME: Repository interfaces for location record storage
// ABOUTME: Enables testability and storage backend swapping

package storage

import (
	"context"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

// RecordRepository defines operations over the flat collection of location records.
// Lookups report absence with found == false rather than an error.
type RecordRepository interface {
	Insert(ctx context.Context, draft models.LocationDraft) (models.LocationRecord, error)
	GetByID(ctx context.Context, id int64) (rec models.LocationRecord, found bool, err error)
	ListAll(ctx context.Context) ([]models.LocationRecord, error)
	ListRecent(ctx context.Context, limit int) ([]models.LocationRecord, error)
	ListByDevice(ctx context.Context, deviceID string) ([]models.LocationRecord, error)
	GetLatestByDevice(ctx context.Context, deviceID string) (rec models.LocationRecord, found bool, err error)
	ListByTimeRange(ctx context.Context, start, end time.Time) ([]models.LocationRecord, error)
	CountDistinctDevices(ctx context.Context) (int64, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteAll(ctx context.Context) error
}

// Repository combines record operations with lifecycle management.
type Repository interface {
	RecordRepository
	Close() error
	Backend() string
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// DefaultRecentLimit is the cap used by ListRecent callers that do not choose one.
const DefaultRecentLimit = 50

// now is the store clock; tests replace it to control recordedAt.
var now = time.Now

// checkRange enforces the closed-interval contract shared by every backend.
func checkRange(start, end time.Time) error {
	if start.After(end) {
		return ErrInvalidRange
	}
	return nil
}

// newestFirst sorts and truncates a snapshot for ListRecent-style reads.
func newestFirst(records []models.LocationRecord, limit int) []models.LocationRecord {
	if limit <= 0 {
		return []models.LocationRecord{}
	}
	models.SortNewestFirst(records)
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
