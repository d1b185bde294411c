package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paperlens/paperlens/adapters/memory"
	"github.com/paperlens/paperlens/domain/record"
)

func TestCostLedger_AppendAndTotals(t *testing.T) {
	l := memory.NewCostLedger()
	at := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)

	err := l.Append(context.Background(), record.Cost{
		ID: "c1", Identity: "user-1", Model: "gpt-4o-mini",
		InputTokens: 1000, OutputTokens: 500, Cost: 0.00045, CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.AddUsage(context.Background(), "user-1", 0.00045, at); err != nil {
		t.Fatalf("add usage: %v", err)
	}

	totals, err := l.Totals(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.TotalAnalyses != 1 {
		t.Errorf("total analyses = %d, want 1", totals.TotalAnalyses)
	}
	if totals.TotalCost != 0.00045 {
		t.Errorf("total cost = %v", totals.TotalCost)
	}
	if !totals.LastAnalysisAt.Equal(at) {
		t.Errorf("last analysis at = %v, want %v", totals.LastAnalysisAt, at)
	}
}

func TestCostLedger_TotalsMissingIdentity(t *testing.T) {
	l := memory.NewCostLedger()

	totals, err := l.Totals(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.TotalAnalyses != 0 || totals.TotalCost != 0 {
		t.Errorf("expected zero totals, got %+v", totals)
	}
}

func TestCostLedger_ConcurrentAddUsageNoLoss(t *testing.T) {
	l := memory.NewCostLedger()
	at := time.Now().UTC()

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddUsage(context.Background(), "user-1", 0.01, at)
		}()
	}
	wg.Wait()

	totals, _ := l.Totals(context.Background(), "user-1")
	if totals.TotalAnalyses != n {
		t.Errorf("total analyses = %d, want %d (no lost increments)", totals.TotalAnalyses, n)
	}
}
