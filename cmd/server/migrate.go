package main

import (
	"alcyxob/checkin-scheduler/internal/config"
	"alcyxob/checkin-scheduler/internal/repository/postgres"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateStatusOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return errors.New("migrate only applies to database.driver=postgres")
		}

		ctx := cmd.Context()
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		if migrateStatusOnly {
			return postgres.MigrationStatus(ctx, db)
		}
		return postgres.Migrate(ctx, db)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "print migration status instead of applying")
}
