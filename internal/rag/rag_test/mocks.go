package rag_test

import (
	"context"
	"io"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
)

// MockIndex implements vectorDB.Index
type MockIndex struct {
	OnSearch func(ctx context.Context, vector []float32, k int, threshold float32) ([]commonModels.ScoredChunk, error)
}

func (m *MockIndex) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	return nil
}

func (m *MockIndex) Upsert(ctx context.Context, documentID int64, chunks []commonModels.Chunk, vectors [][]float32) ([]string, error) {
	return make([]string, len(chunks)), nil
}

func (m *MockIndex) Delete(ctx context.Context, ids []string) error {
	return nil
}

func (m *MockIndex) ClearCollection(ctx context.Context) error {
	return nil
}

func (m *MockIndex) Search(ctx context.Context, vector []float32, k int, threshold float32) ([]commonModels.ScoredChunk, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, k, threshold)
	}
	return []commonModels.ScoredChunk{{Text: "default context", Score: 0.9, DocumentID: 1}}, nil
}

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnEmbedQuery func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.OnEmbedQuery != nil {
		return m.OnEmbedQuery(ctx, text)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) Dimension() int { return 1 }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnComplete func(ctx context.Context, prompt string) (string, error)
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if m.OnComplete != nil {
		return m.OnComplete(ctx, prompt)
	}
	return "mocked llm response", nil
}

// MockIngestor implements rag.Ingestor
type MockIngestor struct {
	OnIngestFile func(ctx context.Context, path, filename string) (ingest.Result, error)
	OnIngestURL  func(ctx context.Context, rawURL, filename string) (ingest.Result, error)
}

func (m *MockIngestor) IngestFile(ctx context.Context, path, filename string) (ingest.Result, error) {
	if m.OnIngestFile != nil {
		return m.OnIngestFile(ctx, path, filename)
	}
	return ingest.Result{DocumentID: 1, Chunks: 3}, nil
}

func (m *MockIngestor) IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error) {
	if m.OnIngestURL != nil {
		return m.OnIngestURL(ctx, rawURL, filename)
	}
	return ingest.Result{DocumentID: 2, Chunks: 1}, nil
}

func (m *MockIngestor) StageFile(r io.Reader, filename string) (string, error) {
	return filename, nil
}

func (m *MockIngestor) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func (m *MockIngestor) ClearAll(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *MockIngestor) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return nil, nil
}

func (m *MockIngestor) GetDocument(ctx context.Context, id int64) (commonModels.Document, error) {
	return commonModels.Document{ID: id}, nil
}

func (m *MockIngestor) Stats(ctx context.Context) (commonModels.DocumentStats, error) {
	return commonModels.DocumentStats{}, nil
}
