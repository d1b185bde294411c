package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/adapters/sqlite"
	"github.com/paperlens/paperlens/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		fmt.Printf("Database ready: %s\n", cfg.Database.DSN)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
