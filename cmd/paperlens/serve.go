package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/bootstrap"
	"github.com/paperlens/paperlens/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the paperlens gateway.

The server will:
  - Load configuration from paperlens.yaml (or --config)
  - Or load configuration from PAPERLENS_* environment variables
  - Connect to the database and run migrations
  - Accept analysis submissions and enforce hourly per-identity limits
  - Account for reported token usage on every completed analysis

Environment variables (for Docker deployments):
  PAPERLENS_IDENTITY_URL      - Session provider URL (required)
  PAPERLENS_IDENTITY_API_KEY  - Session provider API key (required)
  PAPERLENS_BACKEND_URL       - Analysis backend URL (required)
  PAPERLENS_BACKEND_API_KEY   - Analysis backend API key (required)
  PAPERLENS_DATABASE_DSN      - Database path (default: paperlens.db)
  PAPERLENS_SERVER_PORT       - Server port (default: 8080)
  PAPERLENS_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  paperlens serve
  paperlens serve --config /etc/paperlens/config.yaml
  paperlens serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
