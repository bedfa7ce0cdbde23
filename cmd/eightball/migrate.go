package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/migrations"
)

var flagSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate up|down|version",
	Short: "Manage the ledger schema",
	Long: `Apply or roll back the ledger schema for DATABASE_DRIVER/DATABASE_URL.

Examples:
  eightball migrate up
  eightball migrate down --steps 1
  DATABASE_DRIVER=postgres DATABASE_URL=postgres://... eightball migrate version`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&flagSteps, "steps", 1, "Migrations to roll back with down")
}

func runMigrate(_ *cobra.Command, args []string) error {
	cfg := config.Load()

	switch args[0] {
	case "up":
		if err := migrations.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		if err := migrations.Rollback(cfg.DatabaseDriver, cfg.DatabaseURL, flagSteps); err != nil {
			return err
		}
		fmt.Printf("rolled back %d migration(s)\n", flagSteps)
	case "version":
		v, dirty, err := migrations.Version(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty=%v)\n", v, dirty)
	}
	return nil
}
