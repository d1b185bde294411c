// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/paperlens/paperlens/domain/analysis"
	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/domain/record"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Storage Ports
// -----------------------------------------------------------------------------

// RateWindowStore persists per-window request counters.
//
// Admit must be atomic with respect to concurrent calls for the same key:
// the increment happens only while the counter is below limit, as a single
// storage operation, never as a separate read followed by a write. It
// returns the post-operation counter value and whether this request was
// admitted. Under N concurrent admitted requests the final counter equals
// exactly N.
type RateWindowStore interface {
	Admit(ctx context.Context, key ratelimit.Key, limit int) (count int, admitted bool, err error)

	// Sweep deletes windows whose start is before cutoff. It runs off the
	// request hot path; failures are logged by the caller, not propagated.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// CostLedger persists metered backend usage: the append-only ledger and
// the running per-identity totals.
type CostLedger interface {
	// Append writes one ledger entry.
	Append(ctx context.Context, c record.Cost) error

	// AddUsage applies one metered call to the identity's running totals
	// as a single atomic increment (one analysis, cost added, timestamp
	// advanced). It must not be implemented as read-compute-write.
	AddUsage(ctx context.Context, identity string, cost float64, at time.Time) error

	// Totals returns the running aggregate for an identity. A missing row
	// yields zero totals, not an error.
	Totals(ctx context.Context, identity string) (record.UsageTotals, error)
}

// RequestLogStore persists per-exchange audit rows.
type RequestLogStore interface {
	RecordBatch(ctx context.Context, reqs []record.APIRequest) error
}

// ActivityStore persists semantic user actions.
type ActivityStore interface {
	Record(ctx context.Context, a record.Activity) error
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// AuditRecorder accepts audit rows for async batched persistence.
type AuditRecorder interface {
	// Record queues an audit row. Non-blocking.
	Record(r record.APIRequest)

	// Flush forces immediate processing of queued rows.
	Flush(ctx context.Context) error

	// Close stops the recorder and drains remaining rows.
	Close() error
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// ErrNoSession is returned by SessionProvider when the request carries no
// valid authenticated session.
var ErrNoSession = errors.New("no authenticated session")

// SessionProvider resolves the opaque session credential supplied with a
// request to an identity handle. Identity is opaque; it carries no PII
// beyond an identifier.
type SessionProvider interface {
	IdentityFor(ctx context.Context, credential string) (string, error)
}

// Analyzer invokes the external long-running analysis capability. A call
// may run for minutes; implementations honor ctx for their own timeout but
// the pipeline does not cancel a dispatch mid-flight on client disconnect.
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (analysis.Result, analysis.TokenUsage, error)
}
