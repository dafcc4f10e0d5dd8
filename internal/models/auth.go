package models

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dohr-michael/moodstream/internal/config"
)

// ErrNoAPIKey is returned when neither the provider config nor the driver's
// environment variables carry a key.
var ErrNoAPIKey = errors.New("no api key")

// keyEnv lists, per driver, the environment variables tried in order when
// the config has no key.
var keyEnv = map[string][]string{
	"anthropic": {"ANTHROPIC_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"mistral":   {"MISTRAL_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Credential is a resolved provider secret and where it came from.
type Credential struct {
	Value  string
	Source string // "auth.token", "auth.api_key" or "env:NAME"
}

// ResolveAuth finds the key for a provider: auth.token, then auth.api_key
// (both accept ${VAR}), then the driver's environment variables.
func ResolveAuth(cfg config.ProviderConfig) (Credential, error) {
	if v := expandRef(cfg.Auth.Token); v != "" {
		return Credential{Value: v, Source: "auth.token"}, nil
	}
	if v := expandRef(cfg.Auth.APIKey); v != "" {
		return Credential{Value: v, Source: "auth.api_key"}, nil
	}

	envs, ok := keyEnv[strings.ToLower(cfg.Driver)]
	if !ok {
		return Credential{}, fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
	for _, name := range envs {
		if v := os.Getenv(name); v != "" {
			return Credential{Value: v, Source: "env:" + name}, nil
		}
	}
	return Credential{}, fmt.Errorf("%w: set %s", ErrNoAPIKey, strings.Join(envs, " or "))
}

// expandRef resolves a "${VAR}" reference; other values are returned trimmed.
func expandRef(s string) string {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, "${"); ok {
		if name, ok = strings.CutSuffix(name, "}"); ok {
			return os.Getenv(name)
		}
	}
	return s
}
