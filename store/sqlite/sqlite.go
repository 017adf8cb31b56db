// Package sqlite implements the tiercache durable store on an embedded
// SQLite database via modernc.org/sqlite (pure Go, no CGO).
//
// The schema is a single table:
//
//	cache(key TEXT PRIMARY KEY, value BLOB, timestamp INTEGER,
//	      schema_version TEXT, size INTEGER)
//
// with an index on (timestamp, key) so LRU victim scans stay cheap. WAL
// mode is enabled and the pool is capped at one connection: the engine
// serializes all access anyway, and a single writer keeps the store's
// atomicity guarantees trivial.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/tiercache/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key            TEXT PRIMARY KEY,
	value          BLOB NOT NULL,
	timestamp      INTEGER NOT NULL,
	schema_version TEXT NOT NULL,
	size           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cache_lru ON cache (timestamp, key);
`

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the backing database at path and prepares the
// cache table. ":memory:" is supported for ephemeral caches; for file paths
// the parent directory is created as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create cache dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (store.Row, bool, error) {
	row := store.Row{Key: key}
	err := s.db.QueryRowContext(ctx,
		"SELECT value, timestamp, schema_version, size FROM cache WHERE key = ?", key).
		Scan(&row.Value, &row.Timestamp, &row.SchemaVersion, &row.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Row{}, false, nil
	}
	if err != nil {
		return store.Row{}, false, err
	}
	return row, true, nil
}

func (s *Store) Put(ctx context.Context, row store.Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (key, value, timestamp, schema_version, size)
		 VALUES (?, ?, ?, ?, ?)`,
		row.Key, row.Value, row.Timestamp, row.SchemaVersion, row.Size)
	return err
}

func (s *Store) PutAll(ctx context.Context, rows []store.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO cache (key, value, timestamp, schema_version, size)
			 VALUES (?, ?, ?, ?, ?)`,
			row.Key, row.Value, row.Timestamp, row.SchemaVersion, row.Size); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	return err
}

func (s *Store) DeleteAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Touch(ctx context.Context, key string, ts int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE cache SET timestamp = ? WHERE key = ?", ts, key)
	return err
}

func (s *Store) Victim(ctx context.Context) (string, int64, bool, error) {
	var (
		key  string
		size int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT key, size FROM cache ORDER BY timestamp ASC, key ASC LIMIT 1").
		Scan(&key, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, err
	}
	return key, size, true, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&n)
	return n, err
}

func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(size), 0) FROM cache").Scan(&n)
	return n, err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache")
	return err
}

// Close releases the database. Safe to call multiple times; operations
// after Close fail with database/sql's closed error.
func (s *Store) Close(context.Context) error {
	return s.db.Close()
}
