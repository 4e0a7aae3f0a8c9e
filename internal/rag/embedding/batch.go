package embedding

import (
	"context"
	"fmt"

	"github.com/akolanti/GoRAG/internal/config"
)

type BatchCall func(ctx context.Context, batch []string) ([][]float32, error)

// EmbedInBatches sends texts in slices of batchSize and checks that every
// vector came back with the expected dimension.
func EmbedInBatches(ctx context.Context, texts []string, batchSize int, dimension int, call BatchCall) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = config.EmbedBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		batch, err := call(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts", start, end, len(batch), end-start)
		}
		if err := CheckDimension(batch, dimension); err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func CheckDimension(vectors [][]float32, dimension int) error {
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dimension)
		}
	}
	return nil
}
