package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/notifier"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/secrets"
)

const (
	providerAuto   = ""
	providerOpenAI = "openai"
	providerGemini = "gemini"
)

type Config struct {
	Telegram *TelegramConfig `mapstructure:"telegram"`
	Database *DatabaseConfig `mapstructure:"database"`
	HH       *HHConfig       `mapstructure:"hh"`
	LLM      *LLMConfig      `mapstructure:"llm"`
	Gemini   *GeminiConfig   `mapstructure:"gemini"`
	Mailer   *MailerConfig   `mapstructure:"mailer"`
}

type TelegramConfig struct {
	Token           string        `mapstructure:"token"`
	TokenFile       string        `mapstructure:"token-file"`
	GenerateTimeout time.Duration `mapstructure:"generate-timeout"`
}

type DatabaseConfig struct {
	// URL is a postgres DSN. The bot keeps everything in memory when it is empty.
	URL string `mapstructure:"url"`
	// Fallback keeps the bot working on the in-memory store while postgres is unavailable.
	Fallback bool `mapstructure:"fallback"`
}

type HHConfig struct {
	TokenFile        string   `mapstructure:"token-file"`
	UserAgent        string   `mapstructure:"user-agent"`
	MaxPages         int      `mapstructure:"max-pages"`
	Limit            int      `mapstructure:"limit"`
	ExcludeEmployers []string `mapstructure:"exclude-employers"`
	DisabledFilters  []string `mapstructure:"disabled-filters"`
}

type LLMConfig struct {
	// Provider selects the shared generator: openai, gemini or empty for whatever has a key.
	Provider   string        `mapstructure:"provider"`
	BaseURL    string        `mapstructure:"base-url"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type MailerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Timezone string        `mapstructure:"timezone"`
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults() {
	viper.SetDefault("telegram.generate-timeout", 2*time.Minute)
	viper.SetDefault("database.fallback", true)
	viper.SetDefault("hh.max-pages", 1)
	viper.SetDefault("hh.limit", 5)
	viper.SetDefault("llm.base-url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.timeout", time.Minute)
	viper.SetDefault("llm.max-retries", 2)
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.max-retries", 3)
	viper.SetDefault("mailer.enabled", true)
	viper.SetDefault("mailer.schedule", notifier.DefaultSchedule)
	viper.SetDefault("mailer.timezone", notifier.DefaultTimezone)
	viper.SetDefault("mailer.interval", notifier.DefaultSendInterval)
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	// Sections without any keys are decoded as nil.
	if config.Telegram == nil {
		config.Telegram = &TelegramConfig{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.HH == nil {
		config.HH = &HHConfig{}
	}
	if config.LLM == nil {
		config.LLM = &LLMConfig{}
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Mailer == nil {
		config.Mailer = &MailerConfig{}
	}

	switch p := strings.ToLower(strings.TrimSpace(config.LLM.Provider)); p {
	case providerAuto, providerOpenAI, providerGemini:
		config.LLM.Provider = p
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}

	return config, nil
}

func (c *TelegramConfig) token() (string, error) {
	return secrets.Load(secrets.Source{Name: "telegram bot token", Value: c.Token, File: c.TokenFile})
}

// token returns an empty token when none is configured: HH.ru vacancy search works anonymously.
func (c *HHConfig) token() (string, error) {
	return secrets.LoadOptional(secrets.Source{Name: "headhunter token", File: c.TokenFile})
}

// apiKey returns an empty key when none is configured.
func (c *LLMConfig) apiKey() (string, error) {
	return secrets.LoadOptional(secrets.Source{Name: "llm api key", Value: c.APIKey, File: c.APIKeyFile})
}

func (c *GeminiConfig) apiKey() (string, error) {
	return secrets.LoadOptional(secrets.Source{Name: "gemini api key", Value: c.APIKey, File: c.APIKeyFile})
}
