package cache

import (
	"context"
	"database/sql"
	"time"

	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
// It uses the pure Go modernc.org/sqlite driver. A file-backed store keeps
// the dashboard cache warm across process restarts; ":memory:" works too.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite cache store.
// The database file is created if it doesn't exist.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		stored_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires
		ON cache_entries (expires_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound if the key is
// absent or expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, time.Now().UTC(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get entry: %w", err)
	}
	return value, nil
}

// Set stores value under key with the given TTL.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().UTC().Add(ttl)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (key, value, stored_at, expires_at) VALUES (?, ?, ?, ?)",
		key, value, time.Now().UTC(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite: failed to delete entry: %w", err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) error {
	// LIKE with escaped wildcards so a prefix containing % or _ cannot
	// match unrelated keys.
	pattern := escapeLike(prefix) + "%"
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\\'", pattern); err != nil {
		return fmt.Errorf("sqlite: failed to delete entries: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
