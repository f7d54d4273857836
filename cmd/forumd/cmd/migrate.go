package cmd

import (
	"errors"
	"fmt"

	"forum/backend/internal/config"
	"forum/backend/internal/infrastructure/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Storage != config.StoragePostgres {
			return errors.New("migrate requires storage=postgres")
		}

		db, err := postgres.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	},
}
