package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/data/documentStore"
	"github.com/akolanti/GoRAG/internal/data/store"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/handlers"
	"github.com/akolanti/GoRAG/internal/job"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/internal/rag/loader"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockService implements rag.Service
type mockService struct {
	OnAsk            func(ctx context.Context, question, sessionID string) (api.AskResponse, error)
	OnIngestFile     func(ctx context.Context, path, filename string) (ingest.Result, error)
	OnIngestURL      func(ctx context.Context, rawURL, filename string) (ingest.Result, error)
	OnDeleteDocument func(ctx context.Context, id int64) (bool, error)
	OnGetDocument    func(ctx context.Context, id int64) (commonModels.Document, error)

	sessions map[string][]commonModels.Message
	staged   []string
	stageDir string
}

func (m *mockService) Ask(ctx context.Context, question, sessionID string) (api.AskResponse, error) {
	if m.OnAsk != nil {
		return m.OnAsk(ctx, question, sessionID)
	}
	return api.AskResponse{Question: question, Answer: "42", SourceChunks: []api.SourceChunk{}}, nil
}

func (m *mockService) GetHistory(sessionID string) []commonModels.Message {
	return m.sessions[sessionID]
}

func (m *mockService) ClearSession(sessionID string) bool {
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

func (m *mockService) IngestFile(ctx context.Context, path, filename string) (ingest.Result, error) {
	if m.OnIngestFile != nil {
		return m.OnIngestFile(ctx, path, filename)
	}
	return ingest.Result{DocumentID: 7, Chunks: 2, Strategy: "prose"}, nil
}

func (m *mockService) IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error) {
	if m.OnIngestURL != nil {
		return m.OnIngestURL(ctx, rawURL, filename)
	}
	return ingest.Result{DocumentID: 8, Chunks: 1}, nil
}

func (m *mockService) StageFile(r io.Reader, filename string) (string, error) {
	path := filepath.Join(m.stageDir, filename)
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	m.staged = append(m.staged, path)
	return path, nil
}

func (m *mockService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	return j
}

func (m *mockService) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, id)
	}
	return true, nil
}

func (m *mockService) ClearAll(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *mockService) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return nil, nil
}

func (m *mockService) GetDocument(ctx context.Context, id int64) (commonModels.Document, error) {
	if m.OnGetDocument != nil {
		return m.OnGetDocument(ctx, id)
	}
	return commonModels.Document{}, documentStore.ErrNotFound
}

func (m *mockService) Stats(ctx context.Context) (commonModels.DocumentStats, error) {
	return commonModels.DocumentStats{TotalDocuments: 3}, nil
}

func newRouter(t *testing.T, svc *mockService) http.Handler {
	t.Helper()
	if svc.stageDir == "" {
		svc.stageDir = t.TempDir()
	}
	h := handlers.NewRAGHandler(svc)
	r := chi.NewRouter()
	r.Get("/health", handlers.GetHandler)
	r.Post("/api/ask", h.Ask)
	r.Get("/api/sessions/{id}/history", h.SessionHistory)
	r.Delete("/api/sessions/{id}", h.ClearSession)
	r.Post("/api/documents/upload", h.UploadDocument)
	r.Post("/api/documents/url", h.IngestURL)
	r.Get("/api/documents", h.ListDocuments)
	r.Get("/api/documents/stats", h.DocumentStats)
	r.Get("/api/documents/{id}", h.GetDocument)
	r.Delete("/api/documents/{id}", h.DeleteDocument)
	r.Delete("/api/documents", h.ClearDocuments)
	r.Get("/files/{id}", h.ServeFile)
	r.Post("/api/ingest", h.PostIngestHandler)
	r.Get("/api/status/{id}", handlers.GetStatusHandler)
	return r
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(t, &mockService{}), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		onAsk      func(ctx context.Context, q, s string) (api.AskResponse, error)
		wantStatus int
	}{
		{name: "Success", body: `{"question":"what?","session_id":"s1"}`, wantStatus: http.StatusOK},
		{name: "Missing_Question", body: `{"session_id":"s1"}`, wantStatus: http.StatusBadRequest},
		{name: "Malformed_JSON", body: `{`, wantStatus: http.StatusBadRequest},
		{
			name: "Service_Error",
			body: `{"question":"what?"}`,
			onAsk: func(ctx context.Context, q, s string) (api.AskResponse, error) {
				return api.AskResponse{}, errors.New("llm down")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{OnAsk: tt.onAsk}
			rec := do(t, newRouter(t, svc), http.MethodPost, "/api/ask", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAsk_ResponseShape(t *testing.T) {
	svc := &mockService{OnAsk: func(ctx context.Context, q, s string) (api.AskResponse, error) {
		assert.Equal(t, "s1", s)
		return api.AskResponse{
			Question:     q,
			Answer:       "yes",
			SourceChunks: []api.SourceChunk{{PageContent: "ctx", Score: 0.8, Metadata: map[string]any{"source": "a.md"}}},
		}, nil
	}}
	rec := do(t, newRouter(t, svc), http.MethodPost, "/api/ask", strings.NewReader(`{"question":"q?","session_id":"s1"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "yes", body["answer"])
	chunks := body["source_chunks"].([]any)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ctx", chunks[0].(map[string]any)["page_content"])
	_, hasError := body["error"]
	assert.False(t, hasError)
}

func TestSessions(t *testing.T) {
	svc := &mockService{sessions: map[string][]commonModels.Message{
		"s1": {{Role: commonModels.RoleUser, Content: "hi"}, {Role: commonModels.RoleAssistant, Content: "hello"}},
	}}
	router := newRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/api/sessions/s1/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history api.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Messages, 2)

	rec = do(t, router, http.MethodGet, "/api/sessions/unknown/history", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/sessions/s1", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/sessions/s1", nil, "").Code)
}

func TestUploadDocument(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := &mockService{}
		var ingested string
		svc.OnIngestFile = func(ctx context.Context, path, filename string) (ingest.Result, error) {
			ingested = path
			assert.Equal(t, "notes.md", filename)
			return ingest.Result{DocumentID: 4, Chunks: 3, Strategy: "structured"}, nil
		}
		body, ct := multipartBody(t, "file", "notes.md", "# Notes\nhello", nil)
		rec := do(t, newRouter(t, svc), http.MethodPost, "/api/documents/upload", body, ct)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp api.IngestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.EqualValues(t, 4, resp.DocumentID)
		assert.Equal(t, "structured", resp.Strategy)
		require.Len(t, svc.staged, 1)
		assert.Equal(t, svc.staged[0], ingested)
	})

	t.Run("Unsupported_Extension", func(t *testing.T) {
		svc := &mockService{}
		body, ct := multipartBody(t, "file", "malware.exe", "MZ", nil)
		rec := do(t, newRouter(t, svc), http.MethodPost, "/api/documents/upload", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.staged)
	})

	t.Run("Duplicate", func(t *testing.T) {
		svc := &mockService{OnIngestFile: func(ctx context.Context, path, filename string) (ingest.Result, error) {
			return ingest.Result{DocumentID: 2, Duplicate: true}, nil
		}}
		body, ct := multipartBody(t, "file", "a.txt", "same", nil)
		rec := do(t, newRouter(t, svc), http.MethodPost, "/api/documents/upload", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"duplicate":true`)
	})

	t.Run("Nothing_Extracted", func(t *testing.T) {
		svc := &mockService{OnIngestFile: func(ctx context.Context, path, filename string) (ingest.Result, error) {
			return ingest.Result{}, errors.Join(ingest.ErrLoadFailed, errors.New("empty"))
		}}
		body, ct := multipartBody(t, "file", "empty.pdf", "%PDF", nil)
		rec := do(t, newRouter(t, svc), http.MethodPost, "/api/documents/upload", body, ct)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestIngestURL(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		onIngest   func(ctx context.Context, rawURL, filename string) (ingest.Result, error)
		wantStatus int
	}{
		{name: "Success", body: `{"url":"https://example.com/faq"}`, wantStatus: http.StatusOK},
		{name: "Missing_URL", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "Invalid_Scheme", body: `{"url":"ftp://example.com"}`, wantStatus: http.StatusBadRequest},
		{
			name: "Fetch_Failure",
			body: `{"url":"https://example.com/404"}`,
			onIngest: func(ctx context.Context, rawURL, filename string) (ingest.Result, error) {
				return ingest.Result{}, &loader.LoadError{Source: rawURL, Reason: "status 404"}
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{OnIngestURL: tt.onIngest}
			rec := do(t, newRouter(t, svc), http.MethodPost, "/api/documents/url", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDocuments(t *testing.T) {
	svc := &mockService{
		OnDeleteDocument: func(ctx context.Context, id int64) (bool, error) {
			return id == 1, nil
		},
	}
	router := newRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documents":[],"total":0}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/documents/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_documents":3`)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/documents/9", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/documents/abc", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/documents/1", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/documents/2", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodDelete, "/api/documents", nil, "").Code)
}

func TestServeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o600))

	svc := &mockService{OnGetDocument: func(ctx context.Context, id int64) (commonModels.Document, error) {
		switch id {
		case 1:
			return commonModels.Document{ID: 1, Filename: "guide.txt", SourceType: commonModels.SourceFile, FilePath: path}, nil
		case 2:
			return commonModels.Document{ID: 2, SourceType: commonModels.SourceURL, SourceURL: "https://example.com"}, nil
		}
		return commonModels.Document{}, documentStore.ErrNotFound
	}}
	router := newRouter(t, svc)

	rec := do(t, router, http.MethodGet, "/files/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "file body", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "guide.txt")

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/files/2", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/files/3", nil, "").Code)
}

// The job handler is a process-wide singleton, so every async scenario runs
// against the one instance initialised here.
func TestAsyncIngest(t *testing.T) {
	jobs := make(chan jobModel.Job, 4)
	dispatch := make(chan bool, 4)
	jobStore := store.InitInMemoryJobStore()
	handlers.InitJobHandler(job.InitJobService(job.ServiceConfig{
		JobChannel:        jobs,
		DispatcherChannel: dispatch,
		JobStore:          jobStore,
	}))
	svc := &mockService{}
	router := newRouter(t, svc)

	t.Run("URL_Job", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/ingest", strings.NewReader(`{"url":"https://example.com"}`), "application/json")
		require.Equal(t, http.StatusAccepted, rec.Code)

		var init api.InitJobResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &init))
		assert.Equal(t, "/api/status/"+init.Id, init.StatusURL)

		queued := <-jobs
		assert.Equal(t, init.Id, queued.Id)
		assert.Equal(t, jobModel.JobTypeIngestURL, queued.JobType)
		assert.Equal(t, "https://example.com", queued.JobPayload.URL)
		assert.True(t, <-dispatch)

		status := do(t, router, http.MethodGet, init.StatusURL, nil, "")
		require.Equal(t, http.StatusOK, status.Code)
		assert.Contains(t, status.Body.String(), string(jobModel.JobStatusQueued))
	})

	t.Run("File_Job", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "report.pdf", "%PDF-1.4", map[string]string{"document_name": "Q3 report"})
		rec := do(t, router, http.MethodPost, "/api/ingest", body, ct)
		require.Equal(t, http.StatusAccepted, rec.Code)

		queued := <-jobs
		<-dispatch
		assert.Equal(t, jobModel.JobTypeIngestFile, queued.JobType)
		assert.Equal(t, "Q3 report", queued.JobPayload.FileName)
		require.Len(t, svc.staged, 1)
		assert.Equal(t, svc.staged[0], queued.JobPayload.FilePath)
	})

	t.Run("Unknown_Status", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/status/nope", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Bad_URL", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/ingest", strings.NewReader(`{"url":"not a url"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
