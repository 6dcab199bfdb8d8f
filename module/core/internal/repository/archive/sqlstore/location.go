package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/anusthan12/owntracker/module/core/domain"
	"github.com/anusthan12/owntracker/module/core/internal/repository/archive"
)

var _ archive.LocationArchive = (*LocationArchive)(nil)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var schemas = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS location_samples (
			id BIGSERIAL PRIMARY KEY,
			device_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			timestamp TEXT NOT NULL,
			received_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS location_samples_device_idx ON location_samples (device_id, received_at)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS location_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp TEXT NOT NULL,
			received_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS location_samples_device_idx ON location_samples (device_id, received_at)`,
	},
}

var inserts = map[Dialect]string{
	Postgres: `INSERT INTO location_samples (device_id, latitude, longitude, timestamp, received_at) VALUES ($1, $2, $3, $4, $5)`,
	SQLite:   `INSERT INTO location_samples (device_id, latitude, longitude, timestamp, received_at) VALUES (?, ?, ?, ?, ?)`,
}

type LocationArchive struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewLocationArchive(db *sql.DB, dialect Dialect) (*LocationArchive, error) {
	if _, ok := inserts[dialect]; !ok {
		return nil, fmt.Errorf("unsupported archive dialect %q", dialect)
	}
	return &LocationArchive{db: db, dialect: dialect, now: time.Now}, nil
}

func (a *LocationArchive) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemas[a.dialect] {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
	}
	return nil
}

func (a *LocationArchive) Insert(ctx context.Context, loc *domain.DeviceLocation) error {
	_, err := a.db.ExecContext(ctx, inserts[a.dialect],
		loc.DeviceID, loc.Location.Lat, loc.Location.Lon, loc.Location.Timestamp, a.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}
