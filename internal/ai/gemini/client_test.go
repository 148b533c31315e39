package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	calls   int
	models  []string
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, text := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waited
}

func TestGeneratorReturnsJoinedText(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(" Первый абзац ", "", "Второй"), nil)

	g := newGenerator(models, Config{Model: "gemini-pro"}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "  prompt  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "Первый абзац\nВторой" {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.models[0] != "gemini-pro" || models.prompts[0] != "prompt" {
		t.Fatalf("unexpected request: %v %v", models.models, models.prompts)
	}

	cfg := models.configs[0]
	if cfg == nil || cfg.Temperature == nil || *cfg.Temperature != 0.7 || cfg.MaxOutputTokens != 1000 {
		t.Fatalf("unexpected generation config: %+v", cfg)
	}

	if g.Provider() != Provider || g.Model() != "gemini-pro" {
		t.Fatalf("unexpected provider/model: %s/%s", g.Provider(), g.Model())
	}
}

func TestGeneratorDefaults(t *testing.T) {
	g := newGenerator(&fakeModels{}, Config{}, nil)
	if g.Model() != defaultModel || g.maxRetries != defaultMaxRetries {
		t.Fatalf("unexpected defaults: %s %d", g.Model(), g.maxRetries)
	}

	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waited := noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(nil, tempErr)
	models.enqueue(textResponse("retry ok"), nil)

	g := newGenerator(models, Config{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
	if len(*waited) != 1 || (*waited)[0] != baseBackoff {
		t.Fatalf("unexpected waits: %v", *waited)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newGenerator(models, Config{Model: "gemini-pro", MaxRetries: 2}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := newGenerator(models, Config{Model: "gemini-pro", MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGeneratorWaitsShortQuotaDelay(t *testing.T) {
	waited := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 1.5s."})
	models.enqueue(textResponse("ok"), nil)

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waited) != 1 || (*waited)[0] != 1500*time.Millisecond {
		t.Fatalf("unexpected waits: %v", *waited)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error")
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("  "), nil)

	g := newGenerator(models, Config{}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error for empty response")
	}
}
