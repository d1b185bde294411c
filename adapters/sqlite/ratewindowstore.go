package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/ports"
)

// RateWindowStore implements ports.RateWindowStore using SQLite.
type RateWindowStore struct {
	db *DB
}

// NewRateWindowStore creates a new SQLite rate window store.
func NewRateWindowStore(db *DB) *RateWindowStore {
	return &RateWindowStore{db: db}
}

// Admit performs the check-and-increment as one conditional upsert. The
// statement either inserts a fresh window at count 1 or increments an
// existing one while it is still below the ceiling; a denied request
// changes nothing. Concurrent requests serialize inside SQLite, so no
// increment is ever lost.
func (s *RateWindowStore) Admit(ctx context.Context, key ratelimit.Key, limit int) (int, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_windows (identity, endpoint, window_start, request_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(identity, endpoint, window_start) DO UPDATE
			SET request_count = request_count + 1
			WHERE rate_windows.request_count < ?
		RETURNING request_count
	`, key.Identity, key.Endpoint, key.WindowStart.UTC(), limit)

	var count int
	err := row.Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		// Denied: the upsert condition failed. Read the counter for the
		// response headers.
		current, readErr := s.count(ctx, key)
		if readErr != nil {
			return 0, false, readErr
		}
		return current, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

func (s *RateWindowStore) count(ctx context.Context, key ratelimit.Key) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT request_count FROM rate_windows
		WHERE identity = ? AND endpoint = ? AND window_start = ?
	`, key.Identity, key.Endpoint, key.WindowStart.UTC())

	var count int
	err := row.Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Sweep deletes windows whose start is before cutoff.
func (s *RateWindowStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_windows WHERE window_start < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ ports.RateWindowStore = (*RateWindowStore)(nil)
