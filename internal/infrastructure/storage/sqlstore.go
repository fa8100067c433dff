package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"feedingest/internal/ports"
)

const createBlobsTable = `CREATE TABLE IF NOT EXISTS state_blobs (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLStore keeps blobs in a single SQLite table, for deployments where the
// state should live next to other relational data.
type SQLStore struct {
	db *sql.DB
}

var _ ports.BlobStore = (*SQLStore)(nil)

// OpenSQLStore opens (and if needed initializes) a SQLite-backed store.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	if _, err := db.Exec(createBlobsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state_blobs: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Read returns the blob stored under key, or ports.ErrNotFound.
func (s *SQLStore) Read(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("data").
		From("state_blobs").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %q: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return data, nil
}

// Write upserts the blob under key.
func (s *SQLStore) Write(ctx context.Context, key string, data []byte) error {
	query, args, err := sq.Insert("state_blobs").
		Columns("key", "data", "updated_at").
		Values(key, data, time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
