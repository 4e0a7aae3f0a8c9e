package api

import (
	"time"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

// responses---------------------

type AskResponse struct {
	Question     string        `json:"question" example:"How do I reset my password?"`
	Answer       string        `json:"answer"`
	SourceChunks []SourceChunk `json:"source_chunks"`
	Error        bool          `json:"error,omitempty"`
}

type SourceChunk struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Score       float32        `json:"score"`
	DocumentID  int64          `json:"document_id"`
}

type HistoryResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []commonModels.Message `json:"messages"`
}

type IngestResponse struct {
	DocumentID int64  `json:"document_id" example:"12"`
	Duplicate  bool   `json:"duplicate"`
	Chunks     int    `json:"chunks"`
	Strategy   string `json:"chunking_strategy,omitempty" example:"structured"`
	Message    string `json:"message" example:"Document ingested"`
}

type DocumentListResponse struct {
	Documents []commonModels.Document `json:"documents"`
	Total     int                     `json:"total"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status         string          `json:"status"`
	CurrentStep    string          `json:"current_step,omitempty"`
	IngestResponse *IngestResponse `json:"ingest_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type AskRequest struct {
	Question  string `json:"question" validate:"required" example:"What is the refund policy?"`
	SessionID string `json:"session_id,omitempty" example:"user-42"`
}

type IngestURLRequest struct {
	URL      string `json:"url" validate:"required" example:"https://go.dev/doc/faq"`
	Filename string `json:"filename,omitempty"`
}
