package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultMistralModel   = "pixtral-12b-latest"
)

// NewMistral creates a Mistral AI chat model via the OpenAI-compatible API.
// Only the Pixtral family accepts images.
func NewMistral(ctx context.Context, cfg config.ProviderConfig, auth Credential) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultMistralModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}

	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:      auth.Value,
		Model:       modelName,
		BaseURL:     baseURL,
		Temperature: temperature(cfg),
		Timeout:     timeoutOr(cfg, 60*time.Second),
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}

	return einoopenai.NewChatModel(ctx, modelConfig)
}
