package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hh-jobs-bot"
)

var envBindings = map[string]string{
	"telegram.token":      "TG_BOT_API_KEY",
	"telegram.token-file": "TG_BOT_TOKEN_FILE",
	"database.url":        "DATABASE_URL",
	"llm.provider":        "LLM_PROVIDER",
	"llm.base-url":        "LLM_BASE_URL",
	"llm.api-key":         "LLM_API_KEY",
	"llm.api-key-file":    "LLM_API_KEY_FILE",
	"llm.model":           "LLM_MODEL",
	"gemini.api-key":      "GEMINI_API_KEY",
	"gemini.api-key-file": "GEMINI_API_KEY_FILE",
	"gemini.model":        "GEMINI_MODEL",
	"hh.token-file":       "HH_TOKEN_FILE",
	"hh.user-agent":       "HH_USER_AGENT",
	"mailer.schedule":     "MAILER_SCHEDULE",
	"mailer.timezone":     "MAILER_TIMEZONE",
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-jobs-bot is a telegram bot for searching vacancies on hh.ru and writing resumes for them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-jobs-bot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// .env is optional, real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	// The default config file may be absent: everything can come from the environment.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}
