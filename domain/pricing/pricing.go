// Package pricing holds the static model price table and the cost formula
// for metered backend usage. All functions are pure.
package pricing

// Price is the cost of one model in USD per million tokens.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultModel is the fallback entry for model identifiers missing from
// the table. Lookups never fail; unknown models are billed at this rate.
const DefaultModel = "gpt-4o-mini"

// table maps model identifiers to per-million-token USD prices.
var table = map[string]Price{
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4.1":           {InputPerMillion: 2.00, OutputPerMillion: 8.00},
	"gpt-4.1-mini":      {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"o3-mini":           {InputPerMillion: 1.10, OutputPerMillion: 4.40},
	"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-7-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"gemini-2.0-flash":  {InputPerMillion: 0.10, OutputPerMillion: 0.40},
}

// Lookup returns the price entry for a model, falling back to the default
// entry when the identifier is unknown.
func Lookup(model string) Price {
	if p, ok := table[model]; ok {
		return p
	}
	return table[DefaultModel]
}

// Cost computes the USD cost of one metered call.
func Cost(model string, inputTokens, outputTokens int64) float64 {
	p := Lookup(model)
	return float64(inputTokens)/1e6*p.InputPerMillion +
		float64(outputTokens)/1e6*p.OutputPerMillion
}
