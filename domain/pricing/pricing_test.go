package pricing_test

import (
	"math"
	"testing"

	"github.com/paperlens/paperlens/domain/pricing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCost_GPT4oMini(t *testing.T) {
	// 1M input at $0.15 + 1M output at $0.60 = $0.75.
	got := pricing.Cost("gpt-4o-mini", 1_000_000, 1_000_000)
	if !almostEqual(got, 0.75) {
		t.Errorf("cost = %v, want 0.75", got)
	}
}

func TestCost_UnknownModelFallsBack(t *testing.T) {
	got := pricing.Cost("some-future-model", 1_000_000, 1_000_000)
	want := pricing.Cost(pricing.DefaultModel, 1_000_000, 1_000_000)
	if !almostEqual(got, want) {
		t.Errorf("cost = %v, want default pricing %v", got, want)
	}
}

func TestCost_ZeroTokens(t *testing.T) {
	if got := pricing.Cost("gpt-4o", 0, 0); got != 0 {
		t.Errorf("cost = %v, want 0", got)
	}
}

func TestCost_Proportional(t *testing.T) {
	// 200k in / 50k out on gpt-4o: 0.2*2.50 + 0.05*10.00 = 1.00.
	got := pricing.Cost("gpt-4o", 200_000, 50_000)
	if !almostEqual(got, 1.00) {
		t.Errorf("cost = %v, want 1.00", got)
	}
}

func TestLookup_NeverNegative(t *testing.T) {
	for _, model := range []string{"gpt-4o-mini", "claude-3-7-sonnet", "unknown"} {
		p := pricing.Lookup(model)
		if p.InputPerMillion < 0 || p.OutputPerMillion < 0 {
			t.Errorf("negative price for %s: %+v", model, p)
		}
	}
}
