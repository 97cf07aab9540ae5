// Package database provides SQLite helpers for the stub notification server.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/tailscale/squibble"

	_ "modernc.org/sqlite"
)

// Database errors.
var (
	ErrOpenDatabase = errors.New("failed to open database")
	ErrPingDatabase = errors.New("failed to ping database")
	ErrApplySchema  = errors.New("failed to apply schema")
)

// Database wraps the sqlx database connection.
type Database struct {
	db *sqlx.DB
}

// New opens a SQLite database at path and applies the given squibble schema.
// Use ":memory:" for an ephemeral database.
func New(path string, schema string) (*Database, error) {
	connectionURL := path
	if path != ":memory:" {
		q := url.Values{}
		q.Set("_pragma", "journal_mode(WAL)")
		connectionURL = fmt.Sprintf("file:%s?%s", path, q.Encode())
	}

	log.Debug().
		Str("path", path).
		Str("config", connectionURL).
		Msg("Opening SQLite database")

	db, err := sqlx.Open("sqlite", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenDatabase, err)
	}

	// SQLite concurrency settings: single connection model
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrPingDatabase, err)
	}

	if schema != "" {
		s := &squibble.Schema{Current: schema}
		if err := s.Apply(context.Background(), db.DB); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", ErrApplySchema, err)
		}
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying *sqlx.DB.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// NotificationSchema is the schema for the stub server's notification table.
func NotificationSchema() string {
	return `
CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    notification_type TEXT NOT NULL DEFAULT 'announcement',
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    data TEXT
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(is_read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at DESC);
`
}
