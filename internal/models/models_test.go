package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dohr-michael/moodstream/internal/config"
)

func TestResolveAuth(t *testing.T) {
	t.Setenv("MY_CUSTOM_KEY", "custom-api-key-value")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic-key")
	t.Setenv("OPENAI_API_KEY", "env-openai-key")
	t.Setenv("MISTRAL_API_KEY", "env-mistral-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	tests := []struct {
		name       string
		cfg        config.ProviderConfig
		wantValue  string
		wantSource string
	}{
		{
			name:       "direct api key",
			cfg:        config.ProviderConfig{Driver: "anthropic", Auth: config.AuthConfig{APIKey: "sk-ant-test-123"}},
			wantValue:  "sk-ant-test-123",
			wantSource: "auth.api_key",
		},
		{
			name: "token wins over api key",
			cfg: config.ProviderConfig{Driver: "anthropic", Auth: config.AuthConfig{
				APIKey: "sk-ant-test-123",
				Token:  "bearer-token-xyz",
			}},
			wantValue:  "bearer-token-xyz",
			wantSource: "auth.token",
		},
		{
			name:       "env reference",
			cfg:        config.ProviderConfig{Driver: "anthropic", Auth: config.AuthConfig{APIKey: " ${MY_CUSTOM_KEY} "}},
			wantValue:  "custom-api-key-value",
			wantSource: "auth.api_key",
		},
		{"anthropic env", config.ProviderConfig{Driver: "anthropic"}, "env-anthropic-key", "env:ANTHROPIC_API_KEY"},
		{"openai env", config.ProviderConfig{Driver: "OpenAI"}, "env-openai-key", "env:OPENAI_API_KEY"},
		{"mistral env", config.ProviderConfig{Driver: "mistral"}, "env-mistral-key", "env:MISTRAL_API_KEY"},
		{"gemini second env", config.ProviderConfig{Driver: "gemini"}, "google-key", "env:GOOGLE_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := ResolveAuth(tt.cfg)
			if err != nil {
				t.Fatalf("ResolveAuth: %v", err)
			}
			if cred.Value != tt.wantValue || cred.Source != tt.wantSource {
				t.Fatalf("got %+v, want value %q from %s", cred, tt.wantValue, tt.wantSource)
			}
		})
	}
}

func TestResolveAuth_UnknownDriver(t *testing.T) {
	_, err := ResolveAuth(config.ProviderConfig{Driver: "cohere"})
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected 'unknown driver' error, got %v", err)
	}
}

func TestResolveAuth_NothingSet(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := ResolveAuth(config.ProviderConfig{Driver: "gemini", Auth: config.AuthConfig{APIKey: "${UNSET_MOODSTREAM_KEY}"}})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY or GOOGLE_API_KEY") {
		t.Fatalf("error should name the env vars: %v", err)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	cfg := config.ModelsConfig{
		Default:   "main",
		Providers: map[string]config.ProviderConfig{},
	}
	reg := NewRegistry(cfg)

	_, err := reg.Get(context.Background(), "nonexistent")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected 'not found' error, got %v", err)
	}
}

func TestRegistry_Info(t *testing.T) {
	cfg := config.ModelsConfig{
		Default: "claude-main",
		Providers: map[string]config.ProviderConfig{
			"claude-main": {Driver: "anthropic", Model: "claude-sonnet-4-5"},
			"local":       {Driver: "ollama", Model: "llava"},
		},
	}
	reg := NewRegistry(cfg)

	list := reg.List()
	if len(list) != 2 || list[0].Name != "claude-main" || list[1].Name != "local" {
		t.Fatalf("list = %+v", list)
	}
	if !list[0].Default || list[1].Default {
		t.Fatalf("default flag wrong: %+v", list)
	}

	info, ok := reg.Info("")
	if !ok || info.Name != "claude-main" {
		t.Fatalf("Info(\"\") = %+v, %v", info, ok)
	}
	if info, _ := reg.Info("local"); info.Label() != "ollama/llava" {
		t.Fatalf("label = %q", info.Label())
	}
	if _, ok := reg.Info("missing"); ok {
		t.Fatal("Info reported an unknown provider")
	}
}

func TestRegistry_NoDefault(t *testing.T) {
	reg := NewRegistry(config.ModelsConfig{})
	if _, err := reg.Default(context.Background()); err == nil {
		t.Fatal("expected error without a default provider")
	}
}

func TestCreateModel_Mistral(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "mistral-key")

	cm, err := CreateModel(context.Background(), config.ProviderConfig{Driver: "mistral"})
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	if cm == nil {
		t.Fatal("expected a chat model")
	}
}

func TestCreateModel_MissingAuth(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := CreateModel(context.Background(), config.ProviderConfig{Driver: "openai", Model: "gpt-4o-mini"})
	if err == nil || !strings.Contains(err.Error(), "resolve auth") {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"status 401: invalid api key", "authentication failed"},
		{"429 too many requests", "rate limited"},
		{"this model does not support image input", "does not accept images"},
		{"dial tcp: connection refused", "connection error"},
	}
	for _, tt := range tests {
		got := HandleError(errors.New(tt.in))
		if !strings.Contains(got.Error(), tt.want) {
			t.Errorf("HandleError(%q) = %v, want prefix %q", tt.in, got, tt.want)
		}
	}
	if HandleError(nil) != nil {
		t.Error("HandleError(nil) should be nil")
	}
}

func TestErrModelUnavailable(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &ErrModelUnavailable{Provider: "ollama", Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
	if got := (&ErrModelUnavailable{Provider: "ollama", Body: "no available server"}).Error(); !strings.Contains(got, "no available server") {
		t.Fatalf("error = %q", got)
	}
}

func TestCreateModel_UnknownDriver(t *testing.T) {
	cfg := config.ProviderConfig{Driver: "unknown-driver"}
	_, err := CreateModel(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected 'unknown driver' error, got %v", err)
	}
}
