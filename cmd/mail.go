package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/notifier"
)

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Send the daily vacancy digest to all users right now",
	Run: func(_ *cobra.Command, _ []string) {
		mail()
	},
}

func init() {
	rootCmd.AddCommand(mailCmd)
}

func mail() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	defer logger.Sync() //nolint:errcheck

	store, err := newStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a storage", zap.Error(err))
	}
	defer store.Close()

	api, err := newTelegram(config)
	if err != nil {
		logger.Fatal("connecting to telegram", zap.Error(err))
	}

	search, err := newFinder(config, store, logger)
	if err != nil {
		logger.Fatal("creating a vacancy finder", zap.Error(err))
	}

	report, err := notifier.NewMailer(api, store, search, config.Mailer.Interval, logger).SendDaily(ctx)
	if err != nil {
		logger.Fatal("sending daily digest", zap.String("run_id", report.RunID), zap.Error(err))
	}
}
