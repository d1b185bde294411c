// Package bootstrap wires all dependencies and starts the application.
// Configuration is loaded from a YAML file or environment, with optional
// hot reload through the config holder.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/paperlens/paperlens/adapters/analyzer"
	"github.com/paperlens/paperlens/adapters/clock"
	plhttp "github.com/paperlens/paperlens/adapters/http"
	"github.com/paperlens/paperlens/adapters/idgen"
	"github.com/paperlens/paperlens/adapters/memory"
	"github.com/paperlens/paperlens/adapters/metrics"
	"github.com/paperlens/paperlens/adapters/redis"
	"github.com/paperlens/paperlens/adapters/session"
	"github.com/paperlens/paperlens/adapters/sqlite"
	"github.com/paperlens/paperlens/app"
	"github.com/paperlens/paperlens/config"
	"github.com/paperlens/paperlens/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Service    *app.AnalysisService

	holder      *config.Holder
	redisClient *goredis.Client
	rateWindows ports.RateWindowStore
	recorder    *AuditRecorder
	sweepStop   chan struct{}
	sweepDone   chan struct{}
}

// New creates and initializes the application from a static config.
func New(cfg *config.Config) (*App, error) {
	return build(cfg, nil)
}

// NewWithHolder creates the application bound to a config holder. Changes
// picked up by the holder are pushed into the pipeline's runtime settings.
func NewWithHolder(holder *config.Holder) (*App, error) {
	return build(holder.Get(), holder)
}

// NewWithHotReload loads config from path and watches it for changes,
// reloading on file writes and SIGHUP.
func NewWithHotReload(path string) (*App, error) {
	probe, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	holder, err := config.NewHolder(path, setupLogger(probe.Logging))
	if err != nil {
		return nil, err
	}

	a, err := NewWithHolder(holder)
	if err != nil {
		holder.Stop()
		return nil, err
	}

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP reload only")
	}
	holder.WatchSignals()

	return a, nil
}

func build(cfg *config.Config, holder *config.Holder) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("store", cfg.RateLimit.Store).
		Msg("initializing paperlens")

	a := &App{
		Logger:  logger,
		Metrics: metrics.New(),
		holder:  holder,
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.DB = db

	rateWindows, err := a.buildRateWindowStore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.rateWindows = rateWindows

	a.recorder = NewAuditRecorder(
		sqlite.NewRequestLogStore(db),
		logger,
		a.Metrics,
		cfg.Audit.BatchSize,
		cfg.Audit.FlushInterval,
	)

	a.Service = app.NewAnalysisService(app.Deps{
		Sessions: session.NewProvider(session.Config{
			BaseURL: cfg.Identity.URL,
			APIKey:  cfg.Identity.APIKey,
			Timeout: cfg.Identity.Timeout,
		}),
		RateWindows: rateWindows,
		Ledger:      sqlite.NewCostLedger(db),
		Activities:  sqlite.NewActivityStore(db),
		Audit:       a.recorder,
		Analyzer: analyzer.NewClient(analyzer.Config{
			BaseURL: cfg.Backend.URL,
			APIKey:  cfg.Backend.APIKey,
			Timeout: cfg.Backend.Timeout,
		}),
		Clock:  clock.Real{},
		IDGen:  idgen.UUID{},
		Logger: logger,
	}, runtimeConfig(cfg))

	if holder != nil {
		holder.OnChange(func(next *config.Config) {
			a.Service.UpdateConfig(runtimeConfig(next))
			a.Metrics.ConfigReloads.Inc()
			a.Metrics.ConfigLastReload.SetToCurrentTime()
		})
		holder.OnError(func(error) {
			a.Metrics.ConfigReloadErrors.Inc()
		})
	}

	handler := plhttp.NewAnalysisHandler(a.Service, clock.Real{}, logger, plhttp.HandlerConfig{
		Environment: cfg.Environment,
		Metrics:     a.Metrics,
	})
	router := plhttp.NewRouter(handler, logger, plhttp.RouterConfig{
		Metrics: a.Metrics,
		Timeout: cfg.Server.WriteTimeout,
	})

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.startSweeper(cfg.RateLimit.SweepInterval, cfg.RateLimit.SweepRetention)

	return a, nil
}

func (a *App) buildRateWindowStore(cfg *config.Config) (ports.RateWindowStore, error) {
	switch cfg.RateLimit.Store {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.redisClient = client
		return redis.NewRateWindowStore(client), nil
	case "memory":
		return memory.NewRateWindowStore(), nil
	default:
		return sqlite.NewRateWindowStore(a.DB), nil
	}
}

func runtimeConfig(cfg *config.Config) app.RuntimeConfig {
	return app.RuntimeConfig{
		AnalyzeLimit: cfg.RateLimit.AnalyzeLimit,
		DefaultLimit: cfg.RateLimit.DefaultLimit,
		FailOpen:     cfg.RateLimit.FailOpen,
		Model:        cfg.Backend.Model,
		MaxTokens:    cfg.Backend.MaxTokens,
	}
}

// startSweeper runs periodic deletion of expired rate windows. Counter rows
// are only read for the current window, so retention is purely a storage
// concern.
func (a *App) startSweeper(interval, retention time.Duration) {
	if interval <= 0 {
		return
	}

	a.sweepStop = make(chan struct{})
	a.sweepDone = make(chan struct{})

	go func() {
		defer close(a.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.sweepStop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				cutoff := time.Now().UTC().Add(-retention)
				deleted, err := a.rateWindows.Sweep(ctx, cutoff)
				cancel()
				if err != nil {
					a.Logger.Error().Err(err).Msg("rate window sweep failed")
					continue
				}
				if deleted > 0 {
					a.Logger.Debug().Int64("deleted", deleted).Msg("swept expired rate windows")
				}
			}
		}
	}()
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.sweepStop != nil {
		close(a.sweepStop)
		<-a.sweepDone
	}

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("audit recorder close error")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("redis close error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
