// Package analyzer calls the external document-analysis backend. A single
// call can run for minutes and is billed per token, so the client carries
// a long timeout and reports token usage alongside the result.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/paperlens/paperlens/domain/analysis"
	"github.com/paperlens/paperlens/domain/fault"
	"github.com/paperlens/paperlens/ports"
)

// Client implements ports.Analyzer against the backend's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config configures the analysis backend client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds one analysis call end to end. Zero means 5 minutes.
	Timeout time.Duration
}

// NewClient creates an analysis backend client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

type analyzeRequest struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type analyzeResponse struct {
	Result analysis.Result `json:"result"`
	Usage  struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Analyze submits one document for analysis and waits for the outcome.
func (c *Client) Analyze(ctx context.Context, in analysis.Input) (analysis.Result, analysis.TokenUsage, error) {
	payload, err := json.Marshal(analyzeRequest{
		Type:      string(in.Type),
		Content:   in.Content,
		Model:     in.Model,
		MaxTokens: in.MaxTokens,
	})
	if err != nil {
		return analysis.Result{}, analysis.TokenUsage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(payload))
	if err != nil {
		return analysis.Result{}, analysis.TokenUsage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := fault.UpstreamFailure
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			kind = fault.UpstreamTimeout
		}
		return analysis.Result{}, analysis.TokenUsage{}, fault.Wrap(kind, "analysis backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := fault.UpstreamFailure
		if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
			kind = fault.UpstreamTimeout
		}
		return analysis.Result{}, analysis.TokenUsage{},
			fault.New(kind, fmt.Sprintf("analysis backend returned %d: %s", resp.StatusCode, body))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return analysis.Result{}, analysis.TokenUsage{},
			fault.Wrap(fault.UpstreamFailure, "malformed analysis response", err)
	}

	usage := analysis.TokenUsage{
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}
	return out.Result, usage, nil
}

var _ ports.Analyzer = (*Client)(nil)
