// Package memory provides in-memory implementations of storage ports,
// used by tests and single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/ports"
)

// RateWindowStore is an in-memory implementation of ports.RateWindowStore.
// The check-and-increment runs under one mutex, so concurrent Admit calls
// for the same key never lose updates.
type RateWindowStore struct {
	mu     sync.Mutex
	counts map[ratelimit.Key]int

	// FailWith, when set, makes every Admit return this error. Used to
	// exercise the limiter's fail-open path.
	FailWith error
}

// NewRateWindowStore creates a new in-memory rate window store.
func NewRateWindowStore() *RateWindowStore {
	return &RateWindowStore{counts: make(map[ratelimit.Key]int)}
}

// Admit increments the window counter iff it is below limit.
func (s *RateWindowStore) Admit(ctx context.Context, key ratelimit.Key, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return 0, false, s.FailWith
	}

	count := s.counts[key]
	if count >= limit {
		return count, false, nil
	}
	count++
	s.counts[key] = count
	return count, true, nil
}

// Sweep deletes windows whose start is before cutoff.
func (s *RateWindowStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key := range s.counts {
		if key.WindowStart.Before(cutoff) {
			delete(s.counts, key)
			n++
		}
	}
	return n, nil
}

// Count returns the current counter for a key (for tests).
func (s *RateWindowStore) Count(key ratelimit.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

var _ ports.RateWindowStore = (*RateWindowStore)(nil)
