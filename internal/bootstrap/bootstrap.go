package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/data/documentStore"
	"github.com/akolanti/GoRAG/internal/data/store"
	"github.com/akolanti/GoRAG/internal/rag"
	"github.com/akolanti/GoRAG/internal/rag/chunking"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/GoRAG/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/GoRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/akolanti/GoRAG/internal/rag/llm/gemini"
	"github.com/akolanti/GoRAG/internal/rag/llm/localLLM"
	"github.com/akolanti/GoRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/GoRAG/internal/rag/loader"
	"github.com/akolanti/GoRAG/internal/rag/prompt"
	"github.com/akolanti/GoRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// App holds everything the entry points share.
type App struct {
	Config     *config.Config
	Service    rag.Service
	Sessions   *store.SessionCache
	Embeddings *embedding.Registry

	documents *documentStore.Store
	index     *qdrantDB.ClientHolder
	logger    *logger_i.Logger
}

func EmbeddingFactories() map[string]embedding.Factory {
	return map[string]embedding.Factory{
		config.EmbeddingProviderGemini: googleEmbedding.New,
		config.EmbeddingProviderOpenAI: openaiEmbedding.New,
		config.EmbeddingProviderLocal:  localEmbedding.New,
	}
}

func LLMFactories() map[string]llm.Factory {
	return map[string]llm.Factory{
		config.LLMProviderGemini: gemini.New,
		config.LLMProviderOpenAI: openaiLLM.New,
		config.LLMProviderLocal:  localLLM.New,
	}
}

func EmbeddingSettings(cfg *config.Config) embedding.Settings {
	return embedding.Settings{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimension:  cfg.Embedding.Dimension,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Timeout:    cfg.EmbeddingTimeout(),
		MaxRetries: cfg.Embedding.MaxRetries,
		BatchSize:  config.EmbedBatchSize,
	}
}

func LLMSettings(cfg *config.Config) llm.Settings {
	return llm.Settings{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	}
}

// Build opens the stores and providers and assembles the RAG service.
// On error everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	return BuildWith(ctx, cfg, embedding.NewRegistry(EmbeddingFactories()))
}

// BuildWith is Build over an existing embedding registry, so several apps in
// one process share embedder instances.
func BuildWith(ctx context.Context, cfg *config.Config, registry *embedding.Registry) (app *App, err error) {
	app = &App{Config: cfg, Embeddings: registry, logger: logger_i.NewLogger("Bootstrap")}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	embedder, err := registry.Get(ctx, EmbeddingSettings(cfg))
	if err != nil {
		return app, fmt.Errorf("embedding provider: %w", err)
	}
	provider, err := llm.New(ctx, LLMSettings(cfg), LLMFactories())
	if err != nil {
		return app, fmt.Errorf("llm provider: %w", err)
	}

	app.documents, err = documentStore.Open(cfg.Database.URL)
	if err != nil {
		return app, err
	}
	if err = app.documents.Init(ctx); err != nil {
		return app, err
	}

	app.index, err = qdrantDB.New(qdrantDB.Options{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.CollectionName,
		Dimension:  embedder.Dimension(),
		Metric:     cfg.Qdrant.Distance,
	})
	if err != nil {
		return app, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if err = app.index.EnsureCollection(ensureCtx, cfg.Qdrant.CollectionName, embedder.Dimension(), cfg.Qdrant.Distance); err != nil {
		return app, err
	}

	templates, err := prompt.Load(cfg.RAG.PromptTemplate)
	if err != nil {
		return app, err
	}

	contentLoader := loader.New(loader.Options{
		WebTimeout:  cfg.WebTimeout(),
		WebMaxBytes: cfg.Web.MaxBytes,
		UserAgent:   cfg.Web.UserAgent,
	})
	coordinator := ingest.NewCoordinator(
		contentLoader,
		chunking.New(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap, cfg.Ingestion.FAQChunkFactor),
		embedder,
		app.index,
		app.documents,
		cfg.Ingestion.DataDir,
	)

	app.Sessions = store.NewSessionCache(cfg.SessionTTL(), cfg.Memory.MaxHistoryLength)
	app.Service = rag.NewService(rag.Deps{
		Embedder: embedder,
		Index:    app.index,
		LLM:      provider,
		Prompts:  templates,
		Sessions: app.Sessions,
		Ingestor: coordinator,
		Retriever: rag.RetrieverSettings{
			SearchType:     cfg.RAG.Retriever.SearchType,
			K:              cfg.RAG.Retriever.SearchK,
			ScoreThreshold: cfg.RAG.Retriever.ScoreThreshold,
		},
	})

	app.logger.Info("Knowledge base ready",
		"embedding", cfg.Embedding.Provider+":"+cfg.Embedding.Model,
		"llm", cfg.LLM.Provider+":"+cfg.LLM.Model,
		"collection", cfg.Qdrant.CollectionName,
	)
	return app, nil
}

func (a *App) Close() {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.documents != nil {
		errs = append(errs, a.documents.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("Error closing services", "error", err)
	}
}
