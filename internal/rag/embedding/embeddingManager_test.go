package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func TestRegistry_CachesByProviderAndModel(t *testing.T) {
	var mu sync.Mutex
	builds := 0
	registry := NewRegistry(map[string]Factory{
		"local": func(_ context.Context, s Settings) (Embedder, error) {
			mu.Lock()
			builds++
			mu.Unlock()
			return &fakeEmbedder{dim: s.Dimension}, nil
		},
	})

	settings := Settings{Provider: "local", Model: "bge", Dimension: 4}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Get(context.Background(), settings)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	first, err := registry.Get(context.Background(), settings)
	require.NoError(t, err)
	second, err := registry.Get(context.Background(), settings)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	_, err = registry.Get(context.Background(), Settings{Provider: "local", Model: "other", Dimension: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistry_UnsupportedProvider(t *testing.T) {
	registry := NewRegistry(map[string]Factory{})

	_, err := registry.Get(context.Background(), Settings{Provider: "cohere", Model: "x"})

	var unsupported *UnsupportedProviderError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "cohere", unsupported.Provider)
}

func TestRegistry_FactoryErrorIsNotCached(t *testing.T) {
	calls := 0
	registry := NewRegistry(map[string]Factory{
		"gemini": func(_ context.Context, s Settings) (Embedder, error) {
			calls++
			if s.APIKey == "" {
				return nil, &MissingDependencyError{Provider: "gemini", Dependency: "an API key"}
			}
			return &fakeEmbedder{dim: 8}, nil
		},
	})

	_, err := registry.Get(context.Background(), Settings{Provider: "gemini", Model: "m"})
	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)

	_, err = registry.Get(context.Background(), Settings{Provider: "gemini", Model: "m", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEmbedInBatches(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}
	var batchSizes []int

	vectors, err := EmbedInBatches(context.Background(), texts, 2, 3, func(_ context.Context, batch []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(batch))
		out := make([][]float32, len(batch))
		for i := range batch {
			out[i] = []float32{1, 2, 3}
		}
		return out, nil
	})

	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestEmbedInBatches_DimensionMismatch(t *testing.T) {
	_, err := EmbedInBatches(context.Background(), []string{"a"}, 10, 3, func(_ context.Context, batch []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbedInBatches_PropagatesCallError(t *testing.T) {
	boom := errors.New("boom")
	_, err := EmbedInBatches(context.Background(), []string{"a"}, 10, 3, func(_ context.Context, batch []string) ([][]float32, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
