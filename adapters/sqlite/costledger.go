package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// CostLedger implements ports.CostLedger using SQLite.
type CostLedger struct {
	db *DB
}

// NewCostLedger creates a new SQLite cost ledger.
func NewCostLedger(db *DB) *CostLedger {
	return &CostLedger{db: db}
}

// Append writes one ledger entry.
func (l *CostLedger) Append(ctx context.Context, c record.Cost) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cost_records (id, identity, model, input_tokens, output_tokens, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Identity, c.Model, c.InputTokens, c.OutputTokens, c.Cost, c.CreatedAt.UTC())
	return err
}

// AddUsage applies one metered call to the identity's running totals as a
// single upsert-increment, so concurrent calls never lose an update.
func (l *CostLedger) AddUsage(ctx context.Context, identity string, cost float64, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO usage_totals (identity, total_analyses, total_cost_usd, last_analysis_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			total_analyses   = total_analyses + 1,
			total_cost_usd   = total_cost_usd + excluded.total_cost_usd,
			last_analysis_at = excluded.last_analysis_at
	`, identity, cost, at.UTC())
	return err
}

// Totals returns the running aggregate for an identity. A missing row
// yields zero totals.
func (l *CostLedger) Totals(ctx context.Context, identity string) (record.UsageTotals, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT total_analyses, total_cost_usd, last_analysis_at
		FROM usage_totals WHERE identity = ?
	`, identity)

	totals := record.UsageTotals{Identity: identity}
	var lastAt sql.NullTime
	err := row.Scan(&totals.TotalAnalyses, &totals.TotalCost, &lastAt)
	if errors.Is(err, sql.ErrNoRows) {
		return totals, nil
	}
	if err != nil {
		return record.UsageTotals{}, err
	}
	if lastAt.Valid {
		totals.LastAnalysisAt = lastAt.Time
	}
	return totals, nil
}

var _ ports.CostLedger = (*CostLedger)(nil)
