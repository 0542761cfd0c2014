// ABOUTME: PostgreSQL storage backend for location records
// ABOUTME: Uses pgx through database/sql so it shares the SQLStore query layer

package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// DefaultPostgresDSN is used when the config leaves postgres_dsn empty.
const DefaultPostgresDSN = "postgres://localhost/tagtrack?sslmode=disable"

// postgresSchema relies on an identity column; DELETE never rewinds its sequence.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS location_records (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		device_id VARCHAR(100) NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		altitude DOUBLE PRECISION,
		accuracy DOUBLE PRECISION,
		signal_strength INTEGER,
		observed_at BIGINT NOT NULL,
		recorded_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_location_records_device_id ON location_records(device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_location_records_observed_at ON location_records(observed_at)`,
}

// NewPostgresDB connects to PostgreSQL and ensures the schema exists.
func NewPostgresDB(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = DefaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("ping postgres", err)
	}
	return openSQLStore(db, dialect{name: BackendPostgres, schema: postgresSchema, numbered: true})
}
