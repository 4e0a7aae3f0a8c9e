package localLLM

import (
	"context"
	"strings"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/customHttpClient"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client drives a self-hosted OpenAI-compatible chat server (llama.cpp, vLLM, Ollama).
type Client struct {
	model    llms.Model
	settings llm.Settings
	logger   *logger_i.Logger
}

func New(_ context.Context, settings llm.Settings) (llm.Provider, error) {
	if settings.BaseURL == "" {
		return nil, &llm.MissingDependencyError{Provider: config.LLMProviderLocal, Dependency: "a base_url for the chat server"}
	}
	token := settings.APIKey
	if token == "" {
		token = "none"
	}

	model, err := openai.New(
		openai.WithBaseURL(settings.BaseURL),
		openai.WithToken(token),
		openai.WithModel(settings.Model),
		openai.WithHTTPClient(customHttpClient.NewClient(settings.Timeout)),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		model:    model,
		settings: settings,
		logger:   logger_i.NewLogger("llm_local").With("model", settings.Model, "baseUrl", settings.BaseURL),
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := llm.Retry(ctx, c.settings.MaxRetries, c.settings.Timeout, nil, func(ctx context.Context) (string, error) {
		out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
			llms.WithTemperature(c.settings.Temperature),
			llms.WithMaxTokens(c.settings.MaxTokens),
		)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", llm.ErrEmptyCompletion
		}
		return out, nil
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("local completion failed", "error", err)
		return "", err
	}
	return answer, nil
}
