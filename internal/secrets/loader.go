// Package secrets resolves tokens and api keys given inline or as files.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a source has neither a file nor a value.
var ErrNotConfigured = errors.New("not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages, e.g. "telegram bot token".
	Name string
	// Value is an inline secret from the config file or an environment variable.
	Value string
	// File points to a file containing the secret. It takes precedence over Value.
	File string
}

func (s Source) empty() bool {
	return strings.TrimSpace(s.File) == "" && strings.TrimSpace(s.Value) == ""
}

// Load returns the trimmed secret. File wins over Value. An error is returned when
// neither contains a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is %w", name, ErrNotConfigured)
	}
	return secret, nil
}

// LoadOptional is Load for secrets the bot can run without: an empty source gives "".
func LoadOptional(src Source) (string, error) {
	if src.empty() {
		return "", nil
	}
	return Load(src)
}
