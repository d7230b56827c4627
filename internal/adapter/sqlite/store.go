// Package sqlite persists geocode lookup outcomes between runs so repeated
// ingestions of the same workbook skip the external service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/polling-place-etl/internal/geocode"
)

// Store implements geocode.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	query      TEXT PRIMARY KEY,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	failed     INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);
`

// Open opens or creates the cache database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Get implements geocode.Store.
func (s *Store) Get(ctx context.Context, key string) (geocode.Entry, bool, error) {
	var e geocode.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, failed FROM geocode_cache WHERE query = ?`, key,
	).Scan(&e.Coordinates.Lat, &e.Coordinates.Lon, &e.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return geocode.Entry{}, false, nil
	}
	if err != nil {
		return geocode.Entry{}, false, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	return e, true, nil
}

// Put implements geocode.Store. A later outcome for the same query replaces
// the earlier one.
func (s *Store) Put(ctx context.Context, key string, e geocode.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (query, lat, lon, failed, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET lat = excluded.lat, lon = excluded.lon,
		 failed = excluded.failed, updated_at = excluded.updated_at`,
		key, e.Coordinates.Lat, e.Coordinates.Lon, e.Failed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put %q: %w", key, err)
	}
	return nil
}

// Len returns the number of cached queries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocode_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ geocode.Store = (*Store)(nil)
