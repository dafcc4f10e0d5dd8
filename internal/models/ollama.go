package models

import (
	"context"
	"net/http"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/moodstream/internal/config"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// NewOllama creates an Ollama chat model. The model must be multimodal
// (llava, llama3.2-vision, qwen2.5vl...). Local vision models are slow on
// CPU, hence the longer default timeout.
func NewOllama(ctx context.Context, cfg config.ProviderConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := timeoutOr(cfg, 120*time.Second)

	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
		Options: ollamaOptions(cfg),
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: newJSONGuard("ollama", http.DefaultTransport),
		},
	})
}

// ollamaOptions maps max_tokens, temperature and the num_ctx, num_predict,
// top_p, top_k entries of the free-form options.
func ollamaOptions(cfg config.ProviderConfig) *einoollama.Options {
	opts := &einoollama.Options{NumPredict: cfg.MaxTokens}
	if t := temperature(cfg); t != nil {
		opts.Temperature = *t
	}

	num := func(key string) (float64, bool) {
		v, ok := cfg.Options[key].(float64)
		return v, ok
	}
	if v, ok := num("num_ctx"); ok {
		opts.NumCtx = int(v)
	}
	if v, ok := num("num_predict"); ok {
		opts.NumPredict = int(v)
	}
	if v, ok := num("top_p"); ok {
		opts.TopP = float32(v)
	}
	if v, ok := num("top_k"); ok {
		opts.TopK = int(v)
	}
	return opts
}
