package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// NewArchiveDB opens the archive database, or returns nil when no archive
// driver is configured.
func NewArchiveDB(cfg *Config) (*sql.DB, error) {
	if cfg.ArchiveDriver == "" {
		return nil, nil
	}

	db, err := sql.Open(cfg.ArchiveDriver, cfg.ArchiveDSN)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.ArchiveDriver, err)
	}

	if cfg.ArchiveDriver == "sqlite" {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.ArchiveDriver, err)
	}
	return db, nil
}
