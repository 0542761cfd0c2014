// ABOUTME: SQLite storage backend for location records
// ABOUTME: Provides local persistence using the pure Go SQLite driver

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSchema uses AUTOINCREMENT so ids are never reused after a delete.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS location_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		altitude REAL,
		accuracy REAL,
		signal_strength INTEGER,
		observed_at INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_location_records_device_id ON location_records(device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_location_records_observed_at ON location_records(observed_at)`,
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "tagtrack", "tagtrack.db")
}

// NewSQLiteDB opens (or creates) a SQLite database at the given path.
// Creates the directory and database file if they don't exist.
func NewSQLiteDB(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers; SQLite allows only one at a time anyway.
	db.SetMaxOpenConns(1)

	return openSQLStore(db, dialect{name: BackendSQLite, schema: sqliteSchema})
}
