package database

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB is the sqlite handle shared by the key/value store and the metrics table
type DB struct {
	*sqlx.DB
}

// InitDB opens (creating if needed) the sqlite database at dbPath and its tables
func InitDB(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	// sqlite allows a single writer; an in-memory database lives per connection
	conn.SetMaxOpenConns(1)

	createKVTable := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = conn.Exec(createKVTable); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create kv table")
	}

	createMetricsTable := `
		CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err = conn.Exec(createMetricsTable); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create metrics table")
	}

	log.Debug("Database initialized successfully.")
	return &DB{DB: conn}, nil
}

func (db *DB) CloseDB() error {
	if db != nil && db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
