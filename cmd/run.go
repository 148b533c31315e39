package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/ai"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/ai/gemini"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/ai/openai"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/bot"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/dialog"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/finder"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/headhunter"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/notifier"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the telegram bot and the daily mailing",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("no-mailer", false, "do not schedule the daily mailing")
}

// run is the main command: it serves telegram updates until SIGINT or SIGTERM.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting the hh-jobs-bot", zap.String("version", version))

	store, err := newStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a storage", zap.Error(err))
	}
	defer store.Close()

	api, err := newTelegram(config)
	if err != nil {
		logger.Fatal("connecting to telegram", zap.Error(err))
	}
	logger.Info("authorized in telegram", zap.String("bot", api.Self.UserName))

	search, err := newFinder(config, store, logger)
	if err != nil {
		logger.Fatal("creating a vacancy finder", zap.Error(err))
	}

	writer, err := newWriter(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating a document writer", zap.Error(err))
	}
	if !writer.Configured() {
		logger.Warn("no shared llm configured",
			zap.String("hint", "set LLM_API_KEY or GEMINI_API_KEY_FILE, otherwise users have to set their own key"),
		)
	}

	b := bot.New(api, bot.Deps{
		Store:           store,
		Finder:          search,
		Writer:          writer,
		Dialogs:         dialog.NewManager(),
		Logger:          logger,
		GenerateTimeout: config.Telegram.GenerateTimeout,
	})
	if err := b.RegisterCommands(); err != nil {
		logger.Warn("registering bot commands", zap.Error(err))
	}

	noMailer, _ := cmd.Flags().GetBool("no-mailer")
	if config.Mailer.Enabled && !noMailer {
		mailer := notifier.NewMailer(api, store, search, config.Mailer.Interval, logger)
		scheduler, err := notifier.NewScheduler(config.Mailer.Schedule, config.Mailer.Timezone, mailer, logger)
		if err != nil {
			logger.Fatal("creating a scheduler", zap.Error(err))
		}
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("starting a scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
		logger.Info("daily mailing scheduled", zap.Time("next", scheduler.Next()))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	if err := b.Run(ctx, updates); err != nil {
		logger.Error("bot stopped", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// secrets are not dumped: only file paths and non-sensitive fields are shown
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redacted(config *Config) Config {
	out := *config
	telegram, llm, gem := *config.Telegram, *config.LLM, *config.Gemini
	telegram.Token = mask(telegram.Token)
	llm.APIKey = mask(llm.APIKey)
	gem.APIKey = mask(gem.APIKey)
	out.Telegram, out.LLM, out.Gemini = &telegram, &llm, &gem
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func newTelegram(config *Config) (*tgbotapi.BotAPI, error) {
	token, err := config.Telegram.token()
	if err != nil {
		return nil, fmt.Errorf("%w (set TG_BOT_API_KEY or TG_BOT_TOKEN_FILE)", err)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = viper.GetBool("debug")
	return api, nil
}

// newStore picks postgres when a DSN is configured. With database.fallback the bot keeps
// working on memory while postgres is unavailable.
func newStore(ctx context.Context, config *Config, logger *zap.Logger) (storage.Store, error) {
	if config.Database.URL == "" {
		logger.Warn("DATABASE_URL is not set, using in-memory storage")
		return storage.NewMemory(), nil
	}

	pg, err := storage.NewPostgres(config.Database.URL, logger, viper.GetBool("debug"))
	if err != nil {
		if !config.Database.Fallback {
			return nil, err
		}
		logger.Warn("postgres is unavailable, using in-memory storage", zap.Error(err))
		return storage.NewMemory(), nil
	}

	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	if !config.Database.Fallback {
		return pg, nil
	}
	return storage.NewFallback(pg, storage.NewMemory(), logger), nil
}

func newFinder(config *Config, store finder.VacancyStore, logger *zap.Logger) (*finder.Finder, error) {
	token, err := config.HH.token()
	if err != nil {
		return nil, err
	}

	hh := headhunter.New(logger, token)
	if config.HH.UserAgent != "" {
		hh.UserAgent = config.HH.UserAgent
	}
	if config.HH.MaxPages > 0 {
		hh.MaxPages = config.HH.MaxPages
	}

	f := finder.New(hh, store, logger)
	if config.HH.Limit > 0 {
		f.Limit = config.HH.Limit
	}
	f.Employers = config.HH.ExcludeEmployers
	f.DisabledFilters = config.HH.DisabledFilters
	return f, nil
}

// newWriter builds the document writer. Per-user keys always go to the OpenAI-compatible client;
// the shared generator is Gemini when selected or when only a Gemini key is present.
func newWriter(ctx context.Context, config *Config, logger *zap.Logger) (*ai.Writer, error) {
	llmKey, err := config.LLM.apiKey()
	if err != nil {
		return nil, err
	}

	defaults := ai.Settings{
		BaseURL: config.LLM.BaseURL,
		APIKey:  llmKey,
		Model:   config.LLM.Model,
	}

	newClient := func(s ai.Settings) (ai.Generator, error) {
		client, err := openai.New(openai.Config{
			BaseURL:    s.BaseURL,
			APIKey:     s.APIKey,
			Model:      s.Model,
			Timeout:    config.LLM.Timeout,
			MaxRetries: config.LLM.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	var fallback ai.Generator
	if config.LLM.Provider != providerOpenAI {
		geminiKey, err := config.Gemini.apiKey()
		if err != nil {
			return nil, err
		}

		useGemini := geminiKey != "" && (config.LLM.Provider == providerGemini || llmKey == "")
		if config.LLM.Provider == providerGemini && geminiKey == "" {
			return nil, fmt.Errorf("gemini api key is not configured (set gemini.api-key-file or GEMINI_API_KEY_FILE)")
		}

		if useGemini {
			generator, err := gemini.NewGenerator(ctx, gemini.Config{
				APIKey:     geminiKey,
				Model:      config.Gemini.Model,
				MaxRetries: config.Gemini.MaxRetries,
			}, logger)
			if err != nil {
				return nil, fmt.Errorf("creating gemini generator: %w", err)
			}
			fallback = generator
		}
	}

	return ai.NewWriter(defaults, newClient, fallback, logger), nil
}
