// Package analysis defines the contract with the external long-running
// document analysis capability. The pipeline treats the analysis itself as
// opaque: it dispatches a typed input and receives a typed result plus
// token-usage telemetry.
package analysis

import "github.com/paperlens/paperlens/domain/sanitize"

// Input is the typed payload handed to the analysis backend.
type Input struct {
	Type      sanitize.InputType
	Content   string
	Model     string // empty means the backend default
	MaxTokens int    // 0 means no explicit budget
}

// TokenUsage is the metering telemetry reported by the backend.
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// Total returns the combined token count.
func (u TokenUsage) Total() int64 { return u.InputTokens + u.OutputTokens }

// Reported is true when the backend sent usable telemetry. Cost accounting
// only runs for reported usage.
func (u TokenUsage) Reported() bool { return u.InputTokens > 0 || u.OutputTokens > 0 }

// Result is the structured output of one analysis.
type Result struct {
	Title       string   `json:"title,omitempty"`
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"keyFindings,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Model       string   `json:"model"`
}
