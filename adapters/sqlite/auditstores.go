package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// RequestLogStore implements ports.RequestLogStore using SQLite.
type RequestLogStore struct {
	db *DB
}

// NewRequestLogStore creates a new SQLite request log store.
func NewRequestLogStore(db *DB) *RequestLogStore {
	return &RequestLogStore{db: db}
}

// RecordBatch inserts audit rows in a single transaction.
func (s *RequestLogStore) RecordBatch(ctx context.Context, reqs []record.APIRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO api_requests (id, endpoint, method, status_code, latency_ms, request_bytes, error, identity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range reqs {
		_, err := stmt.ExecContext(ctx,
			r.ID, r.Endpoint, r.Method, r.StatusCode, r.LatencyMs,
			r.RequestBytes, r.Error, r.Identity, r.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert request %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// ActivityStore implements ports.ActivityStore using SQLite.
type ActivityStore struct {
	db *DB
}

// NewActivityStore creates a new SQLite activity store.
func NewActivityStore(db *DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Record inserts one activity entry. Detail is stored as JSON.
func (s *ActivityStore) Record(ctx context.Context, a record.Activity) error {
	detail := "{}"
	if len(a.Detail) > 0 {
		raw, err := json.Marshal(a.Detail)
		if err != nil {
			return fmt.Errorf("marshal detail: %w", err)
		}
		detail = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, identity, type, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Identity, a.Type, detail, a.CreatedAt.UTC())
	return err
}

var (
	_ ports.RequestLogStore = (*RequestLogStore)(nil)
	_ ports.ActivityStore   = (*ActivityStore)(nil)
)
