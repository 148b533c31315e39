package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     func(t *testing.T) Source
		want    string
		wantErr string
	}{
		{
			name: "inline value is trimmed",
			src:  func(*testing.T) Source { return Source{Value: "  token\n"} },
			want: "token",
		},
		{
			name: "file wins over value",
			src: func(t *testing.T) Source {
				return Source{Value: "inline", File: writeFile(t, "from-file\n")}
			},
			want: "from-file",
		},
		{
			name: "empty file",
			src: func(t *testing.T) Source {
				return Source{Name: "telegram bot token", Value: "inline", File: writeFile(t, " \n")}
			},
			wantErr: "telegram bot token file",
		},
		{
			name: "missing file",
			src: func(*testing.T) Source {
				return Source{Name: "llm api key", File: "/nonexistent/key"}
			},
			wantErr: "reading llm api key",
		},
		{
			name:    "nothing configured",
			src:     func(*testing.T) Source { return Source{} },
			wantErr: "secret is not configured",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Load(tt.src(t))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(Source{Name: "hh token", Value: "   "})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "gemini api key"})
	if err != nil || got != "" {
		t.Fatalf("expected empty secret without error, got %q, %v", got, err)
	}

	got, err = LoadOptional(Source{Value: "key"})
	if err != nil || got != "key" {
		t.Fatalf("expected key, got %q, %v", got, err)
	}

	if _, err := LoadOptional(Source{File: "/nonexistent"}); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
