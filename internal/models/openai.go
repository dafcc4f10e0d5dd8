package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

// NewOpenAI creates an OpenAI chat model. BaseURL makes it usable against any
// OpenAI compatible server (LM Studio, vLLM, llama.cpp).
func NewOpenAI(ctx context.Context, cfg config.ProviderConfig, auth Credential) (model.BaseChatModel, error) {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:      auth.Value,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: temperature(cfg),
		Timeout:     timeoutOr(cfg, 60*time.Second),
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}
	return einoopenai.NewChatModel(ctx, modelConfig)
}
