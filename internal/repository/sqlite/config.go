package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/wedding-rsvp/internal/apperror"
	"github.com/sakif/wedding-rsvp/internal/repository"
)

// compile-time check that *DB implements repository.ConfigRepository
var _ repository.ConfigRepository = (*DB)(nil)

// Get returns the value stored under key.
// Returns apperror.ErrNotFound if the key has never been written.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("config", key)
		}
		return "", fmt.Errorf("sqlite: reading config %q: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
//
// ON CONFLICT DO UPDATE keeps the row in place (no delete + insert as with
// INSERT OR REPLACE), so the statement is a single atomic upsert.
func (db *DB) Put(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing config %q: %w", key, err)
	}
	return nil
}
