package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/utils"
)

//go:embed prompts/resume.md
var resumeTemplate string

//go:embed prompts/cover_letter.md
var coverLetterTemplate string

const (
	resumeDescriptionLimit      = 200
	coverLetterDescriptionLimit = 300
	defaultMaxLogLength         = 200

	notSpecified   = "Не указано"
	skillsMissing  = "Не указаны"
	resumeMissing  = "Отсутствует"
	promptTitle    = "{{TITLE}}"
	promptCompany  = "{{COMPANY}}"
	promptCity     = "{{CITY}}"
	promptSalary   = "{{SALARY}}"
	promptDesc     = "{{DESCRIPTION}}"
	promptFullName = "{{FULL_NAME}}"
	promptSkills   = "{{SKILLS}}"
	promptResume   = "{{BASE_RESUME}}"
	documentResume = "resume"
	documentLetter = "cover_letter"
)

// Writer generates application documents. It picks a Generator per request from the user's
// settings and the configured defaults.
type Writer struct {
	defaults  Settings
	newClient ClientFactory
	fallback  Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewWriter creates a Writer. fallback may be nil.
func NewWriter(defaults Settings, newClient ClientFactory, fallback Generator, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Writer{
		defaults:  defaults,
		newClient: newClient,
		fallback:  fallback,
		logger:    logger,
		maxLogLen: defaultMaxLogLength,
	}
}

// Resume writes a resume tailored to the posting.
func (w *Writer) Resume(ctx context.Context, user Settings, candidate Candidate, posting Posting) (string, error) {
	prompt := buildPrompt(resumeTemplate, candidate, posting, resumeDescriptionLimit)
	return w.generate(ctx, documentResume, user, prompt)
}

// CoverLetter writes a cover letter for the posting.
func (w *Writer) CoverLetter(ctx context.Context, user Settings, candidate Candidate, posting Posting) (string, error) {
	prompt := buildPrompt(coverLetterTemplate, candidate, posting, coverLetterDescriptionLimit)
	return w.generate(ctx, documentLetter, user, prompt)
}

// Configured reports whether some generator is available without user settings.
func (w *Writer) Configured() bool {
	return w.fallback != nil || (w.newClient != nil && strings.TrimSpace(w.defaults.APIKey) != "")
}

// generator resolves what serves the request: the user's own key first, then the configured
// fallback, then the default key.
func (w *Writer) generator(user Settings) (Generator, error) {
	merged := w.defaults.Merge(user)

	if strings.TrimSpace(user.APIKey) != "" || (w.fallback == nil && merged.APIKey != "") {
		if w.newClient == nil {
			return nil, ErrNotConfigured
		}
		return w.newClient(merged)
	}

	if w.fallback != nil {
		return w.fallback, nil
	}

	return nil, ErrNotConfigured
}

func (w *Writer) generate(ctx context.Context, document string, user Settings, prompt string) (string, error) {
	generator, err := w.generator(user)
	if err != nil {
		return "", err
	}

	log := logger.WithCommonFields(w.logger, generator.Provider(), generator.Model()).
		With(zap.String("document", document))

	log.Debug("generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	raw, err := generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", document, err)
	}

	output := strings.TrimSpace(raw)
	if output == "" {
		return "", errors.New("llm returned empty response")
	}

	log.Debug("generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, w.maxLogLen)),
	)

	return output, nil
}

func buildPrompt(template string, candidate Candidate, posting Posting, descriptionLimit int) string {
	description := truncateRunes(strings.TrimSpace(posting.Description), descriptionLimit)

	replacer := strings.NewReplacer(
		promptTitle, orDefault(posting.Title, notSpecified),
		promptCompany, orDefault(posting.Company, notSpecified),
		promptCity, orDefault(posting.City, notSpecified),
		promptSalary, orDefault(posting.Salary, notSpecified),
		promptDesc, orDefault(description, notSpecified),
		promptFullName, orDefault(candidate.FullName, notSpecified),
		promptSkills, orDefault(candidate.Skills, skillsMissing),
		promptResume, orDefault(candidate.BaseResume, resumeMissing),
	)

	return strings.TrimSpace(replacer.Replace(template))
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
