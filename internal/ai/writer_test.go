package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	provider string
	model    string
	output   string
	err      error
	prompts  []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.output, s.err
}

func (s *stubGenerator) Provider() string { return s.provider }
func (s *stubGenerator) Model() string    { return s.model }

type factoryRecorder struct {
	settings []Settings
	client   *stubGenerator
}

func (f *factoryRecorder) create(s Settings) (Generator, error) {
	f.settings = append(f.settings, s)
	return f.client, nil
}

var (
	candidate = Candidate{FullName: "Иван Петров", Skills: "Go, PostgreSQL", BaseResume: "5 лет бэкенда"}
	posting   = Posting{Title: "Go разработчик", Company: "Acme", City: "Москва", Salary: "от 200000 RUR", Description: strings.Repeat("д", 400)}
)

func TestResumePromptAndDefaultKey(t *testing.T) {
	client := &stubGenerator{provider: "openai", model: "m", output: "  резюме  "}
	factory := &factoryRecorder{client: client}

	w := NewWriter(Settings{BaseURL: "https://llm", APIKey: "default", Model: "m"}, factory.create, nil, zap.NewNop())
	require.True(t, w.Configured())

	out, err := w.Resume(context.Background(), Settings{}, candidate, posting)
	require.NoError(t, err)
	require.Equal(t, "резюме", out)

	require.Equal(t, []Settings{{BaseURL: "https://llm", APIKey: "default", Model: "m"}}, factory.settings)

	prompt := client.prompts[0]
	require.Contains(t, prompt, "Создай профессиональное резюме")
	require.Contains(t, prompt, "- Название: Go разработчик")
	require.Contains(t, prompt, "- Зарплата: от 200000 RUR")
	require.Contains(t, prompt, "- Описание: "+strings.Repeat("д", 200)+"\n")
	require.NotContains(t, prompt, strings.Repeat("д", 201))
	require.Contains(t, prompt, "- Навыки: Go, PostgreSQL")
	require.NotContains(t, prompt, "{{")
}

func TestCoverLetterPromptDefaults(t *testing.T) {
	client := &stubGenerator{output: "письмо"}
	factory := &factoryRecorder{client: client}
	w := NewWriter(Settings{APIKey: "default"}, factory.create, nil, zap.NewNop())

	_, err := w.CoverLetter(context.Background(), Settings{}, Candidate{}, Posting{Title: "QA", Description: strings.Repeat("x", 350)})
	require.NoError(t, err)

	prompt := client.prompts[0]
	require.Contains(t, prompt, "сопроводительное письмо")
	require.Contains(t, prompt, "- Описание: "+strings.Repeat("x", 300)+"\n")
	require.NotContains(t, prompt, strings.Repeat("x", 301))
	require.Contains(t, prompt, "- Компания: Не указано")
	require.Contains(t, prompt, "- Навыки: Не указаны")
	require.Contains(t, prompt, "- Базовое резюме: Отсутствует")
	require.NotContains(t, prompt, "Зарплата")
}

func TestUserKeyWinsOverFallback(t *testing.T) {
	client := &stubGenerator{output: "user"}
	factory := &factoryRecorder{client: client}
	fallback := &stubGenerator{provider: "gemini", output: "fallback"}

	w := NewWriter(Settings{BaseURL: "https://default", Model: "default-model"}, factory.create, fallback, zap.NewNop())

	out, err := w.Resume(context.Background(), Settings{APIKey: "user-key", Model: "user-model"}, candidate, posting)
	require.NoError(t, err)
	require.Equal(t, "user", out)
	require.Equal(t, Settings{BaseURL: "https://default", APIKey: "user-key", Model: "user-model"}, factory.settings[0])

	out, err = w.Resume(context.Background(), Settings{Model: "ignored"}, candidate, posting)
	require.NoError(t, err)
	require.Equal(t, "fallback", out)
	require.Len(t, factory.settings, 1)
}

func TestNotConfigured(t *testing.T) {
	w := NewWriter(Settings{}, (&factoryRecorder{}).create, nil, nil)
	require.False(t, w.Configured())

	_, err := w.CoverLetter(context.Background(), Settings{}, candidate, posting)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeneratorErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	fallback := &stubGenerator{err: boom}
	w := NewWriter(Settings{}, nil, fallback, zap.NewNop())

	_, err := w.Resume(context.Background(), Settings{}, candidate, posting)
	require.ErrorIs(t, err, boom)

	fallback.err = nil
	fallback.output = "   "
	_, err = w.Resume(context.Background(), Settings{}, candidate, posting)
	require.Error(t, err)
}

func TestSettingsMerge(t *testing.T) {
	base := Settings{BaseURL: "a", APIKey: "b", Model: "c"}
	require.Equal(t, base, base.Merge(Settings{BaseURL: "  "}))
	require.Equal(t, Settings{BaseURL: "x", APIKey: "b", Model: "c"}, base.Merge(Settings{BaseURL: " x "}))
}
