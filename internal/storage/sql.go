// ABOUTME: database/sql storage implementation shared by the SQLite and PostgreSQL backends
// ABOUTME: Timestamps are stored as Unix microseconds, the precision records are normalized to

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harper/tagtrack/internal/models"
)

// dialect captures the differences between SQL backends.
type dialect struct {
	name     string
	schema   []string
	numbered bool // $1, $2 placeholders instead of ?
}

// SQLStore implements Repository on a database/sql connection pool.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Compile-time check that SQLStore implements Repository.
var _ Repository = (*SQLStore)(nil)

const recordColumns = `id, device_id, latitude, longitude, altitude, accuracy, signal_strength, observed_at, recorded_at`

func openSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates or updates the database schema.
func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Backend returns the backend name.
func (s *SQLStore) Backend() string { return s.dialect.name }

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that number their parameters.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Insert stores a draft and returns it with its assigned id.
func (s *SQLStore) Insert(ctx context.Context, draft models.LocationDraft) (models.LocationRecord, error) {
	rec := models.NewRecord(0, draft, now())
	row := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO location_records
		   (device_id, latitude, longitude, altitude, accuracy, signal_strength, observed_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`),
		rec.DeviceID, rec.Latitude, rec.Longitude,
		nullFloat(rec.Altitude), nullFloat(rec.Accuracy), nullInt(rec.SignalStrength),
		rec.ObservedAt.UnixMicro(), rec.RecordedAt.UnixMicro(),
	)
	if err := row.Scan(&rec.ID); err != nil {
		return models.LocationRecord{}, unavailable("insert location", err)
	}
	return rec, nil
}

// GetByID retrieves a record by its id.
func (s *SQLStore) GetByID(ctx context.Context, id int64) (models.LocationRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+recordColumns+` FROM location_records WHERE id = ?`), id)
	return scanOne(row, "get location")
}

// ListAll returns every record.
func (s *SQLStore) ListAll(ctx context.Context) ([]models.LocationRecord, error) {
	return s.query(ctx, "list locations", `SELECT `+recordColumns+` FROM location_records`)
}

// ListRecent returns the limit most recently observed records.
func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]models.LocationRecord, error) {
	if limit <= 0 {
		return []models.LocationRecord{}, nil
	}
	return s.query(ctx, "list recent locations",
		`SELECT `+recordColumns+` FROM location_records
		 ORDER BY observed_at DESC, id DESC LIMIT ?`, limit)
}

// ListByDevice returns all records for a device, newest first.
func (s *SQLStore) ListByDevice(ctx context.Context, deviceID string) ([]models.LocationRecord, error) {
	return s.query(ctx, "list device locations",
		`SELECT `+recordColumns+` FROM location_records WHERE device_id = ?
		 ORDER BY observed_at DESC, id DESC`, deviceID)
}

// GetLatestByDevice returns the newest record for a device.
func (s *SQLStore) GetLatestByDevice(ctx context.Context, deviceID string) (models.LocationRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+recordColumns+` FROM location_records WHERE device_id = ?
		 ORDER BY observed_at DESC, id DESC LIMIT 1`), deviceID)
	return scanOne(row, "get latest location")
}

// ListByTimeRange returns records observed within [start, end], newest first.
func (s *SQLStore) ListByTimeRange(ctx context.Context, start, end time.Time) ([]models.LocationRecord, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	lo, hi := microBounds(start, end)
	return s.query(ctx, "list locations in range",
		`SELECT `+recordColumns+` FROM location_records
		 WHERE observed_at >= ? AND observed_at <= ?
		 ORDER BY observed_at DESC, id DESC`,
		lo, hi)
}

// microBounds converts [start, end] to whole microseconds without widening it.
// UnixMicro floors, so the start is rounded up when it has a sub-microsecond part.
func microBounds(start, end time.Time) (lo, hi int64) {
	lo = start.UnixMicro()
	if time.UnixMicro(lo).Before(start) {
		lo++
	}
	return lo, end.UnixMicro()
}

// CountDistinctDevices counts unique device ids.
func (s *SQLStore) CountDistinctDevices(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT device_id) FROM location_records`).Scan(&n)
	if err != nil {
		return 0, unavailable("count devices", err)
	}
	return n, nil
}

// DeleteByID removes a single record.
func (s *SQLStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM location_records WHERE id = ?`), id)
	if err != nil {
		return false, unavailable("delete location", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete location", err)
	}
	return n > 0, nil
}

// DeleteAll clears all records. Identity sequences keep counting.
func (s *SQLStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM location_records`); err != nil {
		return unavailable("delete all locations", err)
	}
	return nil
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]models.LocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer func() { _ = rows.Close() }()

	records := []models.LocationRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row, op string) (models.LocationRecord, bool, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.LocationRecord{}, false, nil
	}
	if err != nil {
		return models.LocationRecord{}, false, unavailable(op, err)
	}
	return rec, true, nil
}

func scanRecord(row scanner) (models.LocationRecord, error) {
	var rec models.LocationRecord
	var altitude, accuracy sql.NullFloat64
	var signal sql.NullInt64
	var observed, recorded int64
	err := row.Scan(&rec.ID, &rec.DeviceID, &rec.Latitude, &rec.Longitude,
		&altitude, &accuracy, &signal, &observed, &recorded)
	if err != nil {
		return models.LocationRecord{}, err
	}
	if altitude.Valid {
		rec.Altitude = &altitude.Float64
	}
	if accuracy.Valid {
		rec.Accuracy = &accuracy.Float64
	}
	if signal.Valid {
		v := int(signal.Int64)
		rec.SignalStrength = &v
	}
	rec.ObservedAt = time.UnixMicro(observed).UTC()
	rec.RecordedAt = time.UnixMicro(recorded).UTC()
	return rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
