package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"studysphere-tracker/internal/config"
	"studysphere-tracker/internal/infra/postgres"
	"studysphere-tracker/internal/infra/sqlite"
	"studysphere-tracker/internal/logging"
)

// NewMigrateCmd prepares the schema of the configured storage driver.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch {
	case cfg.Storage.Driver == config.DriverPostgres || cfg.Passages.Source == "postgres":
		if cfg.Storage.Postgres.URL == "" {
			return fmt.Errorf("postgres url not configured")
		}
		group, err := postgres.Migrate(ctx, cfg.Storage.Postgres.URL)
		if err != nil {
			return err
		}
		if group == nil || group.IsZero() {
			logger.Info("no new migrations to apply")
			return nil
		}
		logger.Info("migrations applied", zap.String("group", group.String()))
	case cfg.Storage.Driver == config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return err
		}
		logger.Info("sqlite schema ready", zap.String("path", cfg.Storage.SQLite.Path))
		return store.Close()
	default:
		logger.Info("nothing to migrate", zap.String("driver", cfg.Storage.Driver))
	}
	return nil
}
