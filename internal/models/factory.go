package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

// CreateModel creates a chat model from a provider config. Every driver must
// accept image input; pick a vision capable model in the config.
func CreateModel(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "ollama":
		return NewOllama(ctx, cfg)
	case "openai", "anthropic", "gemini", "mistral":
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	auth, err := ResolveAuth(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve auth: %w", err)
	}
	switch driver {
	case "openai":
		return NewOpenAI(ctx, cfg, auth)
	case "anthropic":
		return NewClaude(ctx, cfg, auth)
	case "mistral":
		return NewMistral(ctx, cfg, auth)
	default:
		return NewGemini(ctx, cfg, auth)
	}
}

// timeoutOr returns the configured request timeout, or def when unset.
func timeoutOr(cfg config.ProviderConfig, def time.Duration) time.Duration {
	if d := cfg.Timeout.Duration(); d > 0 {
		return d
	}
	return def
}

// temperature returns the configured sampling temperature, from the dedicated
// field or the free-form options.
func temperature(cfg config.ProviderConfig) *float32 {
	if cfg.Temperature != nil {
		return cfg.Temperature
	}
	if temp, ok := cfg.Options["temperature"].(float64); ok {
		t := float32(temp)
		return &t
	}
	return nil
}
