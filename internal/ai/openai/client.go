// Package openai talks to any OpenAI-compatible chat completion endpoint.
package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	Provider = "openai"

	DefaultModel   = "gpt-4o-mini"
	requestTimeout = 60 * time.Second
	maxRetries     = 2
	temperature    = 0.7
	maxTokens      = 1000
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout of a single request attempt. requestTimeout when zero.
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	api   openai.Client
	model string
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("llm api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = maxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(retries),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: model,
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty completion choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) Provider() string { return Provider }

func (c *Client) Model() string { return c.model }
