// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Identity    IdentityConfig  `yaml:"identity"`
	Backend     BackendConfig   `yaml:"backend"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Audit       AuditConfig     `yaml:"audit"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IdentityConfig configures the external identity provider that resolves
// session credentials.
type IdentityConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// BackendConfig configures the metered analysis backend.
type BackendConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	Model     string        `yaml:"model"`      // empty means backend default
	MaxTokens int           `yaml:"max_tokens"` // 0 means no explicit budget
}

// RateLimitConfig configures quota admission.
type RateLimitConfig struct {
	AnalyzeLimit int    `yaml:"analyze_limit"` // per hour, default 20
	DefaultLimit int    `yaml:"default_limit"` // per hour, default 100
	FailOpen     bool   `yaml:"fail_open"`     // default true; set false to deny on store errors
	Store        string `yaml:"store"`         // "sqlite", "redis", or "memory"

	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepRetention time.Duration `yaml:"sweep_retention"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the Redis counter store for multi-instance
// deployments.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// AuditConfig configures the write-behind audit recorder.
type AuditConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// Load reads configuration from a YAML file. Environment variables are
// expanded inside the file and PAPERLENS_* variables override it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	// fail_open defaults to true; seeded before decoding so an explicit
	// false in the file sticks.
	var cfg Config
	cfg.RateLimit.FailOpen = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables,
// for deployments without a config file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	cfg.RateLimit.FailOpen = true

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if os.Getenv("PAPERLENS_IDENTITY_URL") != "" {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set PAPERLENS_IDENTITY_URL")
}

// applyEnvOverrides applies PAPERLENS_* environment variables. They always
// override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERLENS_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}

	if v := os.Getenv("PAPERLENS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PAPERLENS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PAPERLENS_IDENTITY_URL"); v != "" {
		cfg.Identity.URL = v
	}
	if v := os.Getenv("PAPERLENS_IDENTITY_API_KEY"); v != "" {
		cfg.Identity.APIKey = v
	}

	if v := os.Getenv("PAPERLENS_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("PAPERLENS_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("PAPERLENS_BACKEND_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("PAPERLENS_BACKEND_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.MaxTokens = n
		}
	}
	if v := os.Getenv("PAPERLENS_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}

	if v := os.Getenv("PAPERLENS_RATELIMIT_ANALYZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.AnalyzeLimit = n
		}
	}
	if v := os.Getenv("PAPERLENS_RATELIMIT_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.DefaultLimit = n
		}
	}
	if v := os.Getenv("PAPERLENS_RATELIMIT_FAIL_OPEN"); v != "" {
		cfg.RateLimit.FailOpen = parseBool(v)
	}
	if v := os.Getenv("PAPERLENS_RATELIMIT_STORE"); v != "" {
		cfg.RateLimit.Store = v
	}

	if v := os.Getenv("PAPERLENS_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PAPERLENS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("PAPERLENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PAPERLENS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Dispatches run for minutes; the write timeout must outlast them.
		cfg.Server.WriteTimeout = 11 * time.Minute
	}

	if cfg.Identity.Timeout == 0 {
		cfg.Identity.Timeout = 10 * time.Second
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 5 * time.Minute
	}

	if cfg.RateLimit.AnalyzeLimit == 0 {
		cfg.RateLimit.AnalyzeLimit = 20
	}
	if cfg.RateLimit.DefaultLimit == 0 {
		cfg.RateLimit.DefaultLimit = 100
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "sqlite"
	}
	if cfg.RateLimit.SweepInterval == 0 {
		cfg.RateLimit.SweepInterval = time.Hour
	}
	if cfg.RateLimit.SweepRetention == 0 {
		cfg.RateLimit.SweepRetention = 24 * time.Hour
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "paperlens.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.Audit.BatchSize == 0 {
		cfg.Audit.BatchSize = 100
	}
	if cfg.Audit.FlushInterval == 0 {
		cfg.Audit.FlushInterval = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Identity.URL == "" {
		return fmt.Errorf("identity.url is required")
	}
	if cfg.Identity.APIKey == "" {
		return fmt.Errorf("identity.api_key is required")
	}
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if cfg.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}

	validStores := map[string]bool{"sqlite": true, "redis": true, "memory": true}
	if !validStores[cfg.RateLimit.Store] {
		return fmt.Errorf("rate_limit.store must be one of: sqlite, redis, memory; got %q", cfg.RateLimit.Store)
	}

	if cfg.RateLimit.AnalyzeLimit < 0 || cfg.RateLimit.DefaultLimit < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}
