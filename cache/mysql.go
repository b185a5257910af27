package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements Store using MySQL.
// Useful when several operator dashboards should share one cache tier and
// a Redis instance is not available.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQL creates a new MySQL cache store over an existing connection.
func NewMySQL(db *sql.DB) (*MySQLStore, error) {
	if err := createMySQLSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQLStore{db: db}, nil
}

// NewMySQLFromDSN creates a new MySQL cache store from a DSN.
// The DSN format is: user:password@tcp(host:port)/database
func NewMySQLFromDSN(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: failed to connect: %w", err)
	}

	return NewMySQL(db)
}

func createMySQLSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		` + "`key`" + `  VARCHAR(512) PRIMARY KEY,
		value      MEDIUMBLOB NOT NULL,
		stored_at  DATETIME NOT NULL,
		expires_at DATETIME NULL,
		INDEX idx_cache_entries_expires (expires_at)
	)
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("mysql: failed to create schema: %w", err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound if the key is
// absent or expired.
func (s *MySQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE `key` = ? AND (expires_at IS NULL OR expires_at > ?)",
		key, time.Now().UTC(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to get entry: %w", err)
	}
	return value, nil
}

// Set stores value under key with the given TTL.
func (s *MySQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().UTC().Add(ttl)
	}

	_, err := s.db.ExecContext(ctx,
		"REPLACE INTO cache_entries (`key`, value, stored_at, expires_at) VALUES (?, ?, ?, ?)",
		key, value, time.Now().UTC(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("mysql: failed to set entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *MySQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE `key` = ?", key); err != nil {
		return fmt.Errorf("mysql: failed to delete entry: %w", err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (s *MySQLStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeLike(prefix) + "%"
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE `key` LIKE ? ESCAPE '\\\\'", pattern); err != nil {
		return fmt.Errorf("mysql: failed to delete entries: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
