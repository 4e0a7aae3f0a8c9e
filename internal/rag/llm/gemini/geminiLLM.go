package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type llmClient struct {
	client    *genai.Client
	modelName string
	settings  llm.Settings
	logger    *logger_i.Logger
}

// New is the llm.Factory for the gemini provider.
func New(ctx context.Context, settings llm.Settings) (llm.Provider, error) {
	if settings.APIKey == "" {
		return nil, &llm.MissingDependencyError{Provider: config.LLMProviderGemini, Dependency: "an API key (GOOGLE_API_KEY)"}
	}
	if settings.Model == "" {
		settings.Model = config.GeminiModelName
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: settings.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Debug("Gemini client created", "model", settings.Model)
	return &llmClient{client: c, modelName: settings.Model, settings: settings, logger: logger}, nil
}

func (c *llmClient) Complete(ctx context.Context, prompt string) (string, error) {
	log := c.logger.WithTrace(ctx)

	contentConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.settings.Temperature)),
		MaxOutputTokens: int32(c.settings.MaxTokens),
	}

	answer, err := llm.Retry(ctx, c.settings.MaxRetries, c.settings.Timeout, rateLimited, func(ctx context.Context) (string, error) {
		result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(result.Text())
		if text == "" {
			return "", llm.ErrEmptyCompletion
		}
		return text, nil
	})
	if err != nil {
		log.Error("Gemini completion failed", "error", err)
		return "", err
	}
	return answer, nil
}

func rateLimited(err error) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return errors.Is(err, llm.ErrEmptyCompletion)
}
