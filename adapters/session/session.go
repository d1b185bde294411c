// Package session resolves request credentials against an external
// identity provider over HTTP.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paperlens/paperlens/ports"
)

// Provider implements ports.SessionProvider by asking a remote identity
// service to validate the credential.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config configures the session provider client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewProvider creates a session provider client.
func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

type validateRequest struct {
	Credential string `json:"credential"`
}

type validateResponse struct {
	Identity string `json:"identity"`
	Valid    bool   `json:"valid"`
}

// IdentityFor resolves a session credential to an identity handle. An
// empty or rejected credential yields ports.ErrNoSession.
func (p *Provider) IdentityFor(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ports.ErrNoSession
	}

	payload, err := json.Marshal(validateRequest{Credential: credential})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/sessions/validate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("validate session: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		return "", ports.ErrNoSession
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, body)
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Valid || out.Identity == "" {
		return "", ports.ErrNoSession
	}
	return out.Identity, nil
}

var _ ports.SessionProvider = (*Provider)(nil)
