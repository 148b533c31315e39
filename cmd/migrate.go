package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	Run: func(_ *cobra.Command, _ []string) {
		migrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrate() {
	ctx := context.Background()

	logger, config := setup()
	defer logger.Sync() //nolint:errcheck

	if config.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required for migrations")
	}

	pg, err := storage.NewPostgres(config.Database.URL, logger, viper.GetBool("debug"))
	if err != nil {
		logger.Fatal("connecting to postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		logger.Fatal("migrating", zap.Error(err))
	}
	logger.Info("schema is up to date")
}
