package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/adapters/sqlite"
	"github.com/paperlens/paperlens/config"
)

var sweepOlderThan time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired rate limit windows",
	Long: `Delete rate limit windows older than the retention period.

The server sweeps on its own schedule; this command exists for
cron-driven deployments and for one-off cleanup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		retention := sweepOlderThan
		if retention == 0 {
			retention = cfg.RateLimit.SweepRetention
		}

		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		cutoff := time.Now().UTC().Add(-retention)
		deleted, err := sqlite.NewRateWindowStore(db).Sweep(cmd.Context(), cutoff)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}

		fmt.Printf("Deleted %d expired windows (older than %s)\n", deleted, cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().DurationVar(&sweepOlderThan, "older-than", 0, "retention override (default from config)")
}
