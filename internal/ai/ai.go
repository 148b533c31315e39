package ai

import (
	"context"
	"errors"
	"strings"
)

var ErrNotConfigured = errors.New("llm is not configured")

// Generator produces text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

// Settings describes an OpenAI-compatible endpoint.
type Settings struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Merge returns s with every non-empty field of override applied.
func (s Settings) Merge(override Settings) Settings {
	if v := strings.TrimSpace(override.BaseURL); v != "" {
		s.BaseURL = v
	}
	if v := strings.TrimSpace(override.APIKey); v != "" {
		s.APIKey = v
	}
	if v := strings.TrimSpace(override.Model); v != "" {
		s.Model = v
	}
	return s
}

// ClientFactory creates a Generator for an OpenAI-compatible endpoint.
type ClientFactory func(Settings) (Generator, error)

type Candidate struct {
	FullName   string
	Skills     string
	BaseResume string
}

type Posting struct {
	Title       string
	Company     string
	City        string
	Salary      string
	Description string
}
