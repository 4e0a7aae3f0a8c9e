package localEmbedding

import (
	"context"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/customHttpClient"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const retryWait = time.Second

// Embedder talks to a self-hosted OpenAI-compatible embedding server such as
// text-embeddings-inference or llama.cpp.
type Embedder struct {
	embedder embeddings.Embedder
	settings embedding.Settings
	logger   *logger_i.Logger
}

// New is the embedding.Factory for the local provider.
func New(_ context.Context, settings embedding.Settings) (embedding.Embedder, error) {
	if settings.BaseURL == "" {
		return nil, &embedding.MissingDependencyError{Provider: config.EmbeddingProviderLocal, Dependency: "a base_url for the embedding server"}
	}

	token := settings.APIKey
	if token == "" {
		// local servers ignore the token but the client requires one
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(settings.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(settings.Model),
		openai.WithHTTPClient(customHttpClient.NewClient(settings.Timeout)),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		settings: settings,
		logger:   logger_i.NewLogger("local_embedding").With("model", settings.Model, "baseUrl", settings.BaseURL),
	}, nil
}

func (e *Embedder) Dimension() int {
	return e.settings.Dimension
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	log := e.logger.WithTrace(ctx)
	log.Debug("generating embeddings for texts", "count", len(texts))

	return embedding.EmbedInBatches(ctx, texts, e.settings.BatchSize, e.Dimension(), func(ctx context.Context, batch []string) ([][]float32, error) {
		return e.retry(ctx, func(ctx context.Context) ([][]float32, error) {
			return e.embedder.EmbedDocuments(ctx, batch)
		})
	})
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.retry(ctx, func(ctx context.Context) ([][]float32, error) {
		v, err := e.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	})
	if err != nil {
		e.logger.WithTrace(ctx).Error("failed to generate query embedding", "err", err)
		return nil, err
	}
	if err := embedding.CheckDimension(vectors, e.Dimension()); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) retry(ctx context.Context, call func(context.Context) ([][]float32, error)) ([][]float32, error) {
	attempts := max(e.settings.MaxRetries, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := e.withTimeout(ctx)
		var out [][]float32
		out, err = call(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WithTrace(ctx).Warn("embedding call failed", "attempt", attempt, "error", err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryWait):
			}
		}
	}
	return nil, err
}

func (e *Embedder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.settings.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.settings.Timeout)
}
