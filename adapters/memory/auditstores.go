package memory

import (
	"context"
	"sync"

	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// RequestLogStore is an in-memory implementation of ports.RequestLogStore.
type RequestLogStore struct {
	mu   sync.Mutex
	rows []record.APIRequest

	RecordErr error
}

// NewRequestLogStore creates a new in-memory request log store.
func NewRequestLogStore() *RequestLogStore {
	return &RequestLogStore{}
}

// RecordBatch stores multiple audit rows.
func (s *RequestLogStore) RecordBatch(ctx context.Context, reqs []record.APIRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecordErr != nil {
		return s.RecordErr
	}
	s.rows = append(s.rows, reqs...)
	return nil
}

// Rows returns a copy of all stored audit rows (for tests).
func (s *RequestLogStore) Rows() []record.APIRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.APIRequest, len(s.rows))
	copy(out, s.rows)
	return out
}

// ActivityStore is an in-memory implementation of ports.ActivityStore.
type ActivityStore struct {
	mu         sync.Mutex
	activities []record.Activity

	RecordErr error
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

// Record stores one activity.
func (s *ActivityStore) Record(ctx context.Context, a record.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecordErr != nil {
		return s.RecordErr
	}
	s.activities = append(s.activities, a)
	return nil
}

// Activities returns a copy of all stored activities (for tests).
func (s *ActivityStore) Activities() []record.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

var (
	_ ports.RequestLogStore = (*RequestLogStore)(nil)
	_ ports.ActivityStore   = (*ActivityStore)(nil)
)
