package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *config.Config {
	cfg := config.Defaults()
	cfg.ApplyDefaults()
	return cfg
}

func TestEmbeddingSettingsFromConfig(t *testing.T) {
	cfg := defaults()
	s := EmbeddingSettings(cfg)
	assert.Equal(t, config.EmbeddingProviderLocal, s.Provider)
	assert.Equal(t, config.DefaultEmbeddingDimension, s.Dimension)
	assert.Equal(t, config.DefaultEmbeddingBaseURL, s.BaseURL)
	assert.Equal(t, cfg.EmbeddingTimeout(), s.Timeout)
}

func TestEmbeddingFactories(t *testing.T) {
	registry := embedding.NewRegistry(EmbeddingFactories())

	_, err := registry.Get(context.Background(), embedding.Settings{Provider: "cohere"})
	var unsupported *embedding.UnsupportedProviderError
	require.True(t, errors.As(err, &unsupported))

	_, err = registry.Get(context.Background(), embedding.Settings{Provider: config.EmbeddingProviderOpenAI, Model: "text-embedding-3-small", Dimension: 1536})
	var missing *embedding.MissingDependencyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, 0, registry.Len())
}

func TestLLMFactories(t *testing.T) {
	cfg := defaults()
	cfg.LLM.Provider = "anthropic"
	_, err := llm.New(context.Background(), LLMSettings(cfg), LLMFactories())
	var unsupported *llm.UnsupportedProviderError
	require.True(t, errors.As(err, &unsupported))

	cfg.LLM.Provider = config.LLMProviderOpenAI
	cfg.LLM.APIKey = ""
	_, err = llm.New(context.Background(), LLMSettings(cfg), LLMFactories())
	var missing *llm.MissingDependencyError
	assert.True(t, errors.As(err, &missing))
}

type staticEmbedder struct{ dim int }

func (e staticEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (e staticEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, e.dim), nil
}

func (e staticEmbedder) Dimension() int { return e.dim }

func TestBuildWith_SharesRegistry(t *testing.T) {
	calls := 0
	registry := embedding.NewRegistry(map[string]embedding.Factory{
		config.EmbeddingProviderLocal: func(context.Context, embedding.Settings) (embedding.Embedder, error) {
			calls++
			return staticEmbedder{dim: 8}, nil
		},
	})

	cfg := defaults()
	cfg.LLM.Provider = "anthropic" // fails after the embedder, before any store is opened

	for i := 0; i < 2; i++ {
		app, err := BuildWith(context.Background(), cfg, registry)
		require.Error(t, err)
		assert.Nil(t, app)
		var unsupported *llm.UnsupportedProviderError
		assert.True(t, errors.As(err, &unsupported))
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, registry.Len())
}
