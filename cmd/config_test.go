package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/notifier"
)

func TestGetConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/bot")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("MAILER_SCHEDULE", "30 8 * * 1-5")

	config, err := getConfig()
	require.NoError(t, err)

	require.Equal(t, "postgres://bot@localhost/bot", config.Database.URL)
	require.True(t, config.Database.Fallback)
	require.Equal(t, providerOpenAI, config.LLM.Provider)
	require.Equal(t, "sk-env", config.LLM.APIKey)
	require.Equal(t, "gpt-4o-mini", config.LLM.Model)
	require.Equal(t, time.Minute, config.LLM.Timeout)
	require.Equal(t, 5, config.HH.Limit)
	require.Equal(t, "30 8 * * 1-5", config.Mailer.Schedule)
	require.Equal(t, notifier.DefaultTimezone, config.Mailer.Timezone)
	require.Equal(t, 2*time.Minute, config.Telegram.GenerateTimeout)
}

func TestGetConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "claude")

	_, err := getConfig()
	require.Error(t, err)
}

func TestRedactedHidesSecrets(t *testing.T) {
	config := &Config{
		Telegram: &TelegramConfig{Token: "123:abc", TokenFile: "/run/secrets/tg"},
		LLM:      &LLMConfig{APIKey: "sk"},
		Gemini:   &GeminiConfig{},
	}

	out := redacted(config)
	require.Equal(t, "***", out.Telegram.Token)
	require.Equal(t, "/run/secrets/tg", out.Telegram.TokenFile)
	require.Equal(t, "***", out.LLM.APIKey)
	require.Empty(t, out.Gemini.APIKey)
	require.Equal(t, "123:abc", config.Telegram.Token)
}

func TestNewWriter(t *testing.T) {
	t.Run("openai key", func(t *testing.T) {
		w, err := newWriter(context.Background(), &Config{
			LLM:    &LLMConfig{Provider: providerOpenAI, APIKey: "sk"},
			Gemini: &GeminiConfig{APIKey: "ignored"},
		}, zap.NewNop())
		require.NoError(t, err)
		require.True(t, w.Configured())
	})

	t.Run("nothing configured", func(t *testing.T) {
		w, err := newWriter(context.Background(), &Config{LLM: &LLMConfig{}, Gemini: &GeminiConfig{}}, zap.NewNop())
		require.NoError(t, err)
		require.False(t, w.Configured())
	})

	t.Run("gemini selected without key", func(t *testing.T) {
		_, err := newWriter(context.Background(), &Config{
			LLM:    &LLMConfig{Provider: providerGemini},
			Gemini: &GeminiConfig{},
		}, zap.NewNop())
		require.Error(t, err)
	})
}
