package openaiEmbedding

import (
	"context"
	"sort"
	"strings"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/customHttpClient"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api      openai.Client
	settings embedding.Settings
	logger   *logger_i.Logger
}

// New is the embedding.Factory for the hosted openai provider.
func New(_ context.Context, settings embedding.Settings) (embedding.Embedder, error) {
	if settings.APIKey == "" {
		return nil, &embedding.MissingDependencyError{Provider: config.EmbeddingProviderOpenAI, Dependency: "an API key (OPENAI_API_KEY)"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(settings.MaxRetries),
		option.WithHTTPClient(customHttpClient.NewClient(settings.Timeout)),
	}
	if settings.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(settings.Timeout))
	}
	if settings.BaseURL != "" && settings.BaseURL != config.DefaultEmbeddingBaseURL {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}

	return &client{
		api:      openai.NewClient(opts...),
		settings: settings,
		logger:   logger_i.NewLogger("openai_embedding").With("model", settings.Model),
	}, nil
}

func (c *client) Dimension() int {
	return c.settings.Dimension
}

func (c *client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.WithTrace(ctx)
	log.Debug("embedding documents", "count", len(texts))
	return embedding.EmbedInBatches(ctx, texts, c.settings.BatchSize, c.Dimension(), c.embed)
}

func (c *client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		c.logger.WithTrace(ctx).Error("query embedding failed", "error", err)
		return nil, err
	}
	if err := embedding.CheckDimension(vectors, c.Dimension()); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) embed(ctx context.Context, batch []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		Model: openai.EmbeddingModel(c.settings.Model),
	}
	// only the text-embedding-3 family accepts a requested size
	if strings.HasPrefix(c.settings.Model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.settings.Dimension))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, 0, len(data))
	for _, d := range data {
		out = append(out, toFloat32(d.Embedding))
	}
	return out, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
