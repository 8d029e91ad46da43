package main

import (
	"context"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/acre/config"
	"github.com/Ramsey-B/acre/pkg/database"
)

// createMigrateCmd creates the schema migration command
func createMigrateCmd(cfg config.Config, logger ectologger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runMigrations(ctx, cfg, logger)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	db, err := connectSqlx(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	service := database.NewMigrationService(logger, database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	return service.Migrate(cfg.DatabaseName, driver)
}
