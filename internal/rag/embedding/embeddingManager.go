package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/GoRAG/pkg/logger_i"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type Settings struct {
	Provider   string
	Model      string
	Dimension  int
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	BatchSize  int
}

func (s Settings) Key() string {
	return s.Provider + ":" + s.Model
}

type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported embedding provider %q", e.Provider)
}

// MissingDependencyError is returned when a provider cannot run without
// something the configuration did not supply.
type MissingDependencyError struct {
	Provider   string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("embedding provider %q is missing %s", e.Provider, e.Dependency)
}

var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type Factory func(ctx context.Context, settings Settings) (Embedder, error)

// Registry builds at most one Embedder per provider:model key.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Embedder
	logger    *logger_i.Logger
}

func NewRegistry(factories map[string]Factory) *Registry {
	return &Registry{
		factories: factories,
		instances: make(map[string]Embedder),
		logger:    logger_i.NewLogger("EmbeddingRegistry"),
	}
}

func (r *Registry) Get(ctx context.Context, settings Settings) (Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := settings.Key()
	if existing, ok := r.instances[key]; ok {
		return existing, nil
	}

	factory, ok := r.factories[settings.Provider]
	if !ok {
		return nil, &UnsupportedProviderError{Provider: settings.Provider}
	}
	embedder, err := factory(ctx, settings)
	if err != nil {
		return nil, err
	}

	r.instances[key] = embedder
	r.logger.Info("embedding provider initialised", "key", key, "dimension", embedder.Dimension())
	return embedder, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
