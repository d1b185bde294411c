// Package record defines the bookkeeping value types persisted by the
// admission pipeline: the per-exchange audit row, semantic activity
// entries, the append-only cost ledger, and running per-identity totals.
package record

import "time"

// APIRequest is the audit row for one HTTP exchange. Exactly one is
// created per exchange, on every exit path.
type APIRequest struct {
	ID           string
	Endpoint     string
	Method       string
	StatusCode   int
	LatencyMs    int64
	RequestBytes int64
	Error        string // empty on success
	Identity     string // empty when unauthenticated
	CreatedAt    time.Time
}

// Activity kinds written by the pipeline.
const (
	ActivityAnalysisRequested = "analysis_requested"
	ActivityAnalysisCompleted = "analysis_completed"
	ActivityAnalysisFailed    = "analysis_failed"
)

// Activity is a semantic user action. Activities are written only for
// authenticated exchanges.
type Activity struct {
	ID        string
	Identity  string
	Type      string
	Detail    map[string]string
	CreatedAt time.Time
}

// Cost is one append-only ledger entry for a metered backend call.
type Cost struct {
	ID           string
	Identity     string // may be empty
	Model        string
	InputTokens  int64
	OutputTokens int64
	Cost         float64 // USD, never negative
	CreatedAt    time.Time
}

// UsageTotals is the running aggregate for one identity. TotalAnalyses is
// monotonically non-decreasing and reflects exactly one increment per
// successfully metered cost entry.
type UsageTotals struct {
	Identity       string
	TotalAnalyses  int64
	TotalCost      float64
	LastAnalysisAt time.Time
}
