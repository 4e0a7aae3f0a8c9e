package googleEmbedding

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/GoRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const rateLimitBackoff = 5 * time.Second

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		log.Error("Rate limit hit! ", "error", err)
		return true
	}
	return false
}

// withRetry retries a rate-limited call up to attempts times.
func withRetry[T any](ctx context.Context, attempts int, log *logger_i.Logger, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var res T
		res, err = call(ctx)
		if err == nil {
			return res, nil
		}
		if !doRetry(err, log) || attempt == attempts {
			break
		}
		log.Debug("Retrying after rate limit", "attempt", attempt, "backoff", rateLimitBackoff)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(rateLimitBackoff):
		}
	}
	return zero, err
}

func vectorsFrom(res *genai.EmbedContentResponse) [][]float32 {
	if res == nil {
		return nil
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		if r == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, r.Values)
	}
	return out
}
