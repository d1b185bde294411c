package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperlens/paperlens/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Identity.URL != "http://identity.internal:9000" {
		t.Errorf("Identity.URL = %s", got.Identity.URL)
	}
}

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if got := h.Get().RateLimit.AnalyzeLimit; got != 20 {
		t.Errorf("initial AnalyzeLimit = %d, want 20", got)
	}

	newContent := minimalConfig + `
rate_limit:
  analyze_limit: 50
  fail_open: true
`
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	cfg := h.Get()
	if cfg.RateLimit.AnalyzeLimit != 50 {
		t.Errorf("reloaded AnalyzeLimit = %d, want 50", cfg.RateLimit.AnalyzeLimit)
	}
	if !cfg.RateLimit.FailOpen {
		t.Error("reloaded FailOpen = false, want true")
	}
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	// Break the file: missing required fields.
	if err := os.WriteFile(path, []byte("backend: {}\n"), 0o644); err != nil {
		t.Fatalf("write broken config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Fatal("Reload should fail on invalid config")
	}
	if got := h.Get().Identity.URL; got != "http://identity.internal:9000" {
		t.Errorf("old config lost, Identity.URL = %s", got)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	called := make(chan *config.Config, 1)
	h.OnChange(func(cfg *config.Config) {
		called <- cfg
	})

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	select {
	case cfg := <-called:
		if cfg == nil {
			t.Error("OnChange received nil config")
		}
	case <-time.After(time.Second):
		t.Fatal("OnChange callback never fired")
	}
}
