package models

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

const defaultClaudeMaxTokens = 1024

// NewClaude creates an Anthropic chat model.
func NewClaude(ctx context.Context, cfg config.ProviderConfig, auth Credential) (model.BaseChatModel, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	modelConfig := &claude.Config{
		APIKey:      auth.Value,
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature(cfg),
		HTTPClient:  &http.Client{Timeout: timeoutOr(cfg, 60*time.Second)},
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelConfig.BaseURL = &baseURL
	}

	cm, err := claude.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, err
	}
	return cm, nil
}
