package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "paperlens",
	Short: "Admission control and accounting for a metered document analysis backend",
	Long: `Paperlens sits in front of a slow, per-token-billed document analysis
backend. It validates and sanitizes submissions, enforces per-identity
hourly rate limits, dispatches accepted work, and accounts for every
token the backend reports.

Quick start:
  paperlens migrate   # Create the database schema
  paperlens serve     # Start the gateway

Maintenance:
  paperlens sweep     # Delete expired rate limit windows`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Local development convenience. Missing .env is not an error.
	godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "paperlens.yaml", "config file path")
}
