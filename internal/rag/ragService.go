package rag

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/data/store"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/internal/rag/embedding"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/internal/rag/llm"
	"github.com/akolanti/GoRAG/internal/rag/prompt"
	"github.com/akolanti/GoRAG/internal/rag/vectorDB"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

/*
Service is the only entry point the HTTP handlers, the CLI, the MCP server
and the worker pool use. The private service struct owns the embedder,
index, llm and session cache so callers never reach them directly, and
tests swap any of them for mocks through Deps.
*/
type Service interface {
	Ask(ctx context.Context, question string, sessionID string) (api.AskResponse, error)
	GetHistory(sessionID string) []commonModels.Message
	ClearSession(sessionID string) bool

	IngestFile(ctx context.Context, path, filename string) (ingest.Result, error)
	IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error)
	StageFile(r io.Reader, filename string) (string, error)
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job

	DeleteDocument(ctx context.Context, id int64) (bool, error)
	ClearAll(ctx context.Context) (bool, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
	GetDocument(ctx context.Context, id int64) (commonModels.Document, error)
	Stats(ctx context.Context) (commonModels.DocumentStats, error)
}

type SessionStore interface {
	GetOrCreate(id string) *store.Session
	History(id string) []commonModels.Message
	Clear(id string) bool
}

type Ingestor interface {
	IngestFile(ctx context.Context, path, filename string) (ingest.Result, error)
	IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error)
	StageFile(r io.Reader, filename string) (string, error)
	DeleteDocument(ctx context.Context, id int64) (bool, error)
	ClearAll(ctx context.Context) (bool, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
	GetDocument(ctx context.Context, id int64) (commonModels.Document, error)
	Stats(ctx context.Context) (commonModels.DocumentStats, error)
}

type RetrieverSettings struct {
	SearchType     string
	K              int
	ScoreThreshold float32
}

// threshold is only applied for the score-threshold search type.
func (r RetrieverSettings) threshold() float32 {
	if r.SearchType == config.SearchTypeScoreThreshold {
		return r.ScoreThreshold
	}
	return 0
}

type Deps struct {
	Embedder  embedding.Embedder
	Index     vectorDB.Index
	LLM       llm.Provider
	Prompts   *prompt.Templates
	Sessions  SessionStore
	Ingestor  Ingestor
	Retriever RetrieverSettings
}

type service struct {
	embedder  embedding.Embedder
	index     vectorDB.Index
	llm       llm.Provider
	prompts   *prompt.Templates
	sessions  SessionStore
	ingestor  Ingestor
	retriever RetrieverSettings
	logger    *logger_i.Logger
}

func NewService(d Deps) Service {
	if d.Retriever.K <= 0 {
		d.Retriever.K = config.DefaultSearchK
	}
	return &service{
		embedder:  d.Embedder,
		index:     d.Index,
		llm:       d.LLM,
		prompts:   d.Prompts,
		sessions:  d.Sessions,
		ingestor:  d.Ingestor,
		retriever: d.Retriever,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

// StatefulAnswerError describes a failed conversational answer. It is logged
// and folded into an error-flagged AskResponse, never returned.
type StatefulAnswerError struct {
	SessionID string
	Stage     string
	Err       error
}

func (e *StatefulAnswerError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Stage, e.Err)
}

func (e *StatefulAnswerError) Unwrap() error {
	return e.Err
}

func (s *service) Ask(ctx context.Context, question string, sessionID string) (api.AskResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return api.AskResponse{}, fmt.Errorf("question is required")
	}
	if sessionID == "" {
		return s.askStateless(ctx, question)
	}
	return s.askStateful(ctx, question, sessionID), nil
}

func (s *service) askStateless(ctx context.Context, question string) (api.AskResponse, error) {
	log := s.logger.WithTrace(ctx)
	start := time.Now()
	log.Info("Processing stateless question")

	chunks, err := s.retrieve(ctx, question)
	if err != nil {
		metrics.RecordAsk("stateless", "failed")
		return api.AskResponse{}, err
	}
	answer, err := s.answer(ctx, question, chunks)
	if err != nil {
		metrics.RecordAsk("stateless", "failed")
		return api.AskResponse{}, err
	}

	metrics.RecordAsk("stateless", "ok")
	log.Info("Request completed", "duration", time.Since(start), "sources", len(chunks))
	return api.AskResponse{Question: question, Answer: answer, SourceChunks: toSourceChunks(chunks)}, nil
}

func (s *service) askStateful(ctx context.Context, question string, sessionID string) api.AskResponse {
	log := s.logger.WithTrace(ctx).With("sessionId", sessionID)
	start := time.Now()
	log.Info("Processing stateful question")

	session := s.sessions.GetOrCreate(sessionID)

	standalone, err := s.condense(ctx, session.Messages(), question)
	if err != nil {
		return s.statefulError(log, question, &StatefulAnswerError{SessionID: sessionID, Stage: "condense", Err: err}, start)
	}
	chunks, err := s.retrieve(ctx, standalone)
	if err != nil {
		return s.statefulError(log, question, &StatefulAnswerError{SessionID: sessionID, Stage: "retrieve", Err: err}, start)
	}
	answer, err := s.answer(ctx, standalone, chunks)
	if err != nil {
		return s.statefulError(log, question, &StatefulAnswerError{SessionID: sessionID, Stage: "answer", Err: err}, start)
	}

	session.AppendExchange(question, answer)
	metrics.RecordAsk("stateful", "ok")
	log.Info("Conversational request completed", "duration", time.Since(start), "sources", len(chunks))
	return api.AskResponse{Question: question, Answer: answer, SourceChunks: toSourceChunks(chunks)}
}

func (s *service) statefulError(log *logger_i.Logger, question string, err *StatefulAnswerError, start time.Time) api.AskResponse {
	log.Error("Error in stateful ask", "duration", time.Since(start), "stage", err.Stage, "error", err.Err)
	metrics.RecordAsk("stateful", "failed")
	return api.AskResponse{
		Question:     question,
		Answer:       "Error processing question: " + err.Err.Error(),
		SourceChunks: []api.SourceChunk{},
		Error:        true,
	}
}

func (s *service) GetHistory(sessionID string) []commonModels.Message {
	return s.sessions.History(sessionID)
}

func (s *service) ClearSession(sessionID string) bool {
	return s.sessions.Clear(sessionID)
}

func (s *service) IngestFile(ctx context.Context, path, filename string) (ingest.Result, error) {
	return s.ingestor.IngestFile(ctx, path, filename)
}

func (s *service) IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error) {
	return s.ingestor.IngestURL(ctx, rawURL, filename)
}

func (s *service) StageFile(r io.Reader, filename string) (string, error) {
	return s.ingestor.StageFile(r, filename)
}

// IngestDocument runs a queued ingestion job to completion.
func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestProcessing

	var (
		res ingest.Result
		err error
	)
	switch job.JobType {
	case jobModel.JobTypeIngestFile:
		res, err = s.ingestor.IngestFile(ctx, job.JobPayload.FilePath, job.JobPayload.FileName)
	case jobModel.JobTypeIngestURL:
		res, err = s.ingestor.IngestURL(ctx, job.JobPayload.URL, job.JobPayload.FileName)
	default:
		err = fmt.Errorf("unknown job type %q", job.JobType)
	}
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE", !isPermanent(err))
	}

	job.JobPayload.DocumentID = res.DocumentID
	job.JobPayload.Duplicate = res.Duplicate
	return completeJob(job)
}

func (s *service) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	return s.ingestor.DeleteDocument(ctx, id)
}

func (s *service) ClearAll(ctx context.Context) (bool, error) {
	return s.ingestor.ClearAll(ctx)
}

func (s *service) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return s.ingestor.ListDocuments(ctx)
}

func (s *service) GetDocument(ctx context.Context, id int64) (commonModels.Document, error) {
	return s.ingestor.GetDocument(ctx, id)
}

func (s *service) Stats(ctx context.Context) (commonModels.DocumentStats, error) {
	return s.ingestor.Stats(ctx)
}
