package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paperlens/paperlens/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Identity: config.IdentityConfig{
			URL:    "http://127.0.0.1:9",
			APIKey: "test-key",
		},
		Backend: config.BackendConfig{
			URL:    "http://127.0.0.1:9",
			APIKey: "test-key",
		},
		RateLimit: config.RateLimitConfig{
			AnalyzeLimit:   20,
			DefaultLimit:   100,
			Store:          "memory",
			SweepInterval:  time.Hour,
			SweepRetention: 24 * time.Hour,
		},
		Database: config.DatabaseConfig{
			DSN: filepath.Join(t.TempDir(), "paperlens-test.db"),
		},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func TestNew_WiresAndShutsDown(t *testing.T) {
	app, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if app.Service == nil {
		t.Fatal("service not wired")
	}
	if app.HTTPServer == nil || app.HTTPServer.Handler == nil {
		t.Fatal("http server not wired")
	}
	if app.Metrics == nil {
		t.Fatal("metrics not wired")
	}

	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNew_TwiceInOneProcess(t *testing.T) {
	first, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	defer first.Shutdown()

	// Each App carries its own metrics registry, so a second construction
	// must not collide with the first.
	second, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer second.Shutdown()
}

func TestNew_SqliteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Store = "sqlite"

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Shutdown()

	if _, err := os.Stat(cfg.Database.DSN); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestNew_MigrateFailureSurfaces(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.DSN = filepath.Join(t.TempDir(), "missing", "nested", "paperlens.db")

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unreachable database path")
	}
}
