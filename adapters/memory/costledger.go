package memory

import (
	"context"
	"sync"
	"time"

	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// CostLedger is an in-memory implementation of ports.CostLedger.
type CostLedger struct {
	mu      sync.Mutex
	entries []record.Cost
	totals  map[string]record.UsageTotals

	// Failure hooks for bookkeeping-error tests.
	AppendErr   error
	AddUsageErr error
}

// NewCostLedger creates a new in-memory cost ledger.
func NewCostLedger() *CostLedger {
	return &CostLedger{totals: make(map[string]record.UsageTotals)}
}

// Append writes one ledger entry.
func (l *CostLedger) Append(ctx context.Context, c record.Cost) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AppendErr != nil {
		return l.AppendErr
	}
	l.entries = append(l.entries, c)
	return nil
}

// AddUsage applies one metered call to the identity's running totals. The
// whole update happens under the mutex, mirroring the single-statement
// increment of the SQLite store.
func (l *CostLedger) AddUsage(ctx context.Context, identity string, cost float64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.AddUsageErr != nil {
		return l.AddUsageErr
	}

	t := l.totals[identity]
	t.Identity = identity
	t.TotalAnalyses++
	t.TotalCost += cost
	if at.After(t.LastAnalysisAt) {
		t.LastAnalysisAt = at
	}
	l.totals[identity] = t
	return nil
}

// Totals returns the running aggregate for an identity.
func (l *CostLedger) Totals(ctx context.Context, identity string) (record.UsageTotals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.totals[identity]
	if !ok {
		return record.UsageTotals{Identity: identity}, nil
	}
	return t, nil
}

// Entries returns a copy of all ledger entries (for tests).
func (l *CostLedger) Entries() []record.Cost {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]record.Cost, len(l.entries))
	copy(out, l.entries)
	return out
}

var _ ports.CostLedger = (*CostLedger)(nil)
