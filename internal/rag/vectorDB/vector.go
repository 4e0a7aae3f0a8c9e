package vectorDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
)

type Index interface {
	EnsureCollection(ctx context.Context, name string, dimension int, metric string) error
	// Upsert writes one point per chunk tagged with documentID and returns the point ids in chunk order.
	Upsert(ctx context.Context, documentID int64, chunks []commonModels.Chunk, vectors [][]float32) ([]string, error)
	Delete(ctx context.Context, ids []string) error
	ClearCollection(ctx context.Context) error
	Search(ctx context.Context, vector []float32, k int, threshold float32) ([]commonModels.ScoredChunk, error)
}

var ErrDimensionMismatch = errors.New("collection dimension does not match the embedding dimension")

type IndexWriteError struct {
	Op  string
	Err error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("vector index %s failed: %v", e.Op, e.Err)
}

func (e *IndexWriteError) Unwrap() error {
	return e.Err
}
