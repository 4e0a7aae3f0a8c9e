package googleEmbedding

import (
	"context"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	settings  embedding.Settings
	logger    *logger_i.Logger
}

// New is the embedding.Factory for the gemini provider.
func New(ctx context.Context, settings embedding.Settings) (embedding.Embedder, error) {
	if settings.APIKey == "" {
		return nil, &embedding.MissingDependencyError{Provider: config.EmbeddingProviderGemini, Dependency: "an API key (GOOGLE_API_KEY)"}
	}
	if settings.Model == "" {
		settings.Model = config.GoogleEmbeddingModel
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: settings.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}

	logger := logger_i.NewLogger("google_embedding")
	logger.Debug("Google Embedding model name: " + settings.Model)
	return &client{
		genAi:     c,
		model:     settings.Model,
		dimension: int32(settings.Dimension),
		settings:  settings,
		logger:    logger,
	}, nil
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.WithTrace(ctx)
	return embedding.EmbedInBatches(ctx, texts, c.settings.BatchSize, c.Dimension(), func(ctx context.Context, batch []string) ([][]float32, error) {
		return withRetry(ctx, c.settings.MaxRetries, log, func(ctx context.Context) ([][]float32, error) {
			res, err := c.doCall(ctx, getContent(batch), taskDocument)
			if err != nil {
				log.Error("Error getting Embeddings from Google", "error", err, "batch", len(batch))
				return nil, err
			}
			return vectorsFrom(res), nil
		})
	})
}

func (c *client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.WithTrace(ctx)
	vectors, err := withRetry(ctx, c.settings.MaxRetries, log, func(ctx context.Context) ([][]float32, error) {
		res, err := c.doCall(ctx, genai.Text(query), taskQuery)
		if err != nil {
			return nil, err
		}
		return vectorsFrom(res), nil
	})
	if err != nil {
		log.Error("Error getting query Embedding from Google", "error", err)
		return nil, err
	}
	if err := embedding.CheckDimension(vectors, c.Dimension()); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, embedding.ErrDimensionMismatch
	}
	return vectors[0], nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, task string) (*genai.EmbedContentResponse, error) {
	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: task})
}
