package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}

		fmt.Println("Configuration valid")
		fmt.Printf("  Environment:   %s\n", cfg.Environment)
		fmt.Printf("  Identity:      %s\n", cfg.Identity.URL)
		fmt.Printf("  Backend:       %s\n", cfg.Backend.URL)
		fmt.Printf("  Limit store:   %s\n", cfg.RateLimit.Store)
		fmt.Printf("  Analyze limit: %d/hour\n", cfg.RateLimit.AnalyzeLimit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
