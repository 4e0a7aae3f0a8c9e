package rag

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/internal/rag/loader"
)

func completeJob(job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	code := http.StatusInternalServerError
	if !canRetry {
		code = http.StatusUnprocessableEntity
	}
	job.Error = jobModel.JobError{
		Code:    code,
		Message: err.Error(),
		Retry:   canRetry,
	}
	job.CurrentStep = jobModel.Error
	job.Status = jobModel.JobStatusError
	return job
}

// isPermanent reports failures that will not go away on retry.
func isPermanent(err error) bool {
	var loadErr *loader.LoadError
	return errors.Is(err, ingest.ErrLoadFailed) || errors.As(err, &loadErr)
}

func (s *service) condense(ctx context.Context, history []commonModels.Message, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("condense_question", time.Since(start)) }()

	p, err := s.prompts.Condense(history, question)
	if err != nil {
		return "", err
	}
	standalone, err := s.llm.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}
	s.logger.WithTrace(ctx).Debug("condensed question", "standalone", standalone)
	return standalone, nil
}

func (s *service) retrieve(ctx context.Context, question string) ([]commonModels.ScoredChunk, error) {
	embedStart := time.Now()
	vector, err := s.embedder.EmbedQuery(ctx, question)
	metrics.CaptureExecutionMetrics("embedding", time.Since(embedStart))
	if err != nil {
		return nil, err
	}

	searchStart := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(searchStart)) }()
	return s.index.Search(ctx, vector, s.retriever.K, s.retriever.threshold())
}

func (s *service) answer(ctx context.Context, question string, chunks []commonModels.ScoredChunk) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	p, err := s.prompts.Answer(chunks, question)
	if err != nil {
		return "", err
	}
	return s.llm.Complete(ctx, p)
}

func toSourceChunks(chunks []commonModels.ScoredChunk) []api.SourceChunk {
	out := make([]api.SourceChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, api.SourceChunk{
			PageContent: c.Text,
			Metadata:    c.Metadata,
			Score:       c.Score,
			DocumentID:  c.DocumentID,
		})
	}
	return out
}
