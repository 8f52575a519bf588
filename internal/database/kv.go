package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by a BlobStore for a missing key
var ErrKeyNotFound = errors.New("key not found")

// BlobStore keeps opaque values under string keys
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SQLiteStore is a BlobStore backed by the kv table
type SQLiteStore struct {
	db *DB
}

func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?;`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get key %s", key)
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return errors.Wrapf(err, "failed to put key %s", key)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?;`, key); err != nil {
		return errors.Wrapf(err, "failed to delete key %s", key)
	}
	return nil
}
