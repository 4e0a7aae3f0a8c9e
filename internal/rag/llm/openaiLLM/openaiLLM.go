package openaiLLM

import (
	"context"
	"strings"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/customHttpClient"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api      openai.Client
	settings llm.Settings
	logger   *logger_i.Logger
}

// New is the llm.Factory for the openai provider. Retries are left to the SDK.
func New(_ context.Context, settings llm.Settings) (llm.Provider, error) {
	if settings.APIKey == "" {
		return nil, &llm.MissingDependencyError{Provider: config.LLMProviderOpenAI, Dependency: "an API key (OPENAI_API_KEY)"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(settings.MaxRetries),
		option.WithHTTPClient(customHttpClient.NewClient(settings.Timeout)),
	}
	if settings.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(settings.Timeout))
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}

	return &client{
		api:      openai.NewClient(opts...),
		settings: settings,
		logger:   logger_i.NewLogger("llm_openai").With("model", settings.Model),
	}, nil
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.settings.Model),
		Temperature: openai.Float(c.settings.Temperature),
		MaxTokens:   openai.Int(int64(c.settings.MaxTokens)),
	})
	if err != nil {
		c.logger.WithTrace(ctx).Error("chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", llm.ErrEmptyCompletion
	}
	return answer, nil
}
