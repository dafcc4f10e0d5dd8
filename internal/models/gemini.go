package models

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/dohr-michael/moodstream/internal/config"
)

// NewGemini creates a Google Gemini chat model through the Gemini API backend.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, auth Credential) (model.BaseChatModel, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     auth.Value,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeoutOr(cfg, 60*time.Second)},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	modelConfig := &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: temperature(cfg),
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxTokens = &maxTokens
	}

	cm, err := gemini.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, err
	}
	return cm, nil
}
