package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/akolanti/GoRAG/internal/adapter"
	"github.com/akolanti/GoRAG/internal/adapter/utils"
	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/rag"
	"github.com/akolanti/GoRAG/internal/rag/loader"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// RAGHandler serves the knowledge-base routes on top of rag.Service.
type RAGHandler struct {
	service rag.Service
}

func NewRAGHandler(service rag.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

// GetHandler godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Router       /health [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// Ask godoc
// @Summary      Ask a question
// @Description  Answers from the knowledge base. With a session_id the question is condensed against the session history first.
// @Tags         Question Answering
// @Accept       json
// @Produce      json
// @Param        request  body      api.AskRequest   true  "Question and optional session id"
// @Success      200      {object}  api.AskResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      500      {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/ask [post]
func (h *RAGHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		logRH.WithTrace(r.Context()).Warn("Bad ask request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, req.SessionID, "question is required")
		return
	}

	resp, err := h.service.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Ask failed", "error", err)
		WriteErrorResponse(w, errorStatus(err), req.SessionID, err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, resp)
}

// SessionHistory godoc
// @Summary      Get session history
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.HistoryResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id}/history [get]
func (h *RAGHandler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	messages := h.service.GetHistory(id)
	if messages == nil {
		messages = []commonModels.Message{}
	}
	writeJsonResponse(w, http.StatusOK, api.HistoryResponse{SessionID: id, Messages: messages})
}

// ClearSession godoc
// @Summary      Clear a session
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      404  {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/sessions/{id} [delete]
func (h *RAGHandler) ClearSession(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	if !h.service.ClearSession(id) {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Success: true, Message: "Session cleared"})
}

// UploadDocument godoc
// @Summary      Upload and ingest a document
// @Description  Saves the file under the data directory and ingests it synchronously. Duplicates are detected by content hash.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "pdf, txt, md, markdown, docx, odt, rtf, html or htm"
// @Success      200   {object}  api.IngestResponse
// @Failure      400   {object}  api.JobResponse
// @Failure      422   {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/documents/upload [post]
func (h *RAGHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	path, filename, ok := h.stageUpload(w, r, "file")
	if !ok {
		return
	}

	res, err := h.service.IngestFile(r.Context(), path, filename)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Upload ingestion failed", "file", filename, "error", err)
		WriteErrorResponse(w, errorStatus(err), filename, err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIngestResponse(res))
}

// IngestURL godoc
// @Summary      Ingest a web page
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      api.IngestURLRequest  true  "URL and optional filename"
// @Success      200      {object}  api.IngestResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      422      {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/documents/url [post]
func (h *RAGHandler) IngestURL(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	req, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	res, err := h.service.IngestURL(r.Context(), req.URL, req.Filename)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("URL ingestion failed", "url", req.URL, "error", err)
		WriteErrorResponse(w, errorStatus(err), req.URL, err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIngestResponse(res))
}

// ListDocuments godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Security     BearerAuth
// @Router       /api/documents [get]
func (h *RAGHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context())
	if err != nil {
		WriteErrorResponse(w, errorStatus(err), "", err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentList(docs))
}

// DocumentStats godoc
// @Summary      Document statistics
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  commonModels.DocumentStats
// @Security     BearerAuth
// @Router       /api/documents/stats [get]
func (h *RAGHandler) DocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		WriteErrorResponse(w, errorStatus(err), "", err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, stats)
}

// GetDocument godoc
// @Summary      Get a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  commonModels.Document
// @Failure      404  {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/documents/{id} [get]
func (h *RAGHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, utils.GetChiURLParam(r, "id"), "invalid document id")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		WriteErrorResponse(w, errorStatus(err), utils.GetChiURLParam(r, "id"), "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, doc)
}

// DeleteDocument godoc
// @Summary      Delete a document and its vectors
// @Tags         Documents
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  api.DeleteResponse
// @Failure      404  {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/documents/{id} [delete]
func (h *RAGHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, utils.GetChiURLParam(r, "id"), "invalid document id")
		return
	}
	deleted, err := h.service.DeleteDocument(r.Context(), id)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Delete failed", "documentId", id, "error", err)
		WriteErrorResponse(w, errorStatus(err), utils.GetChiURLParam(r, "id"), err.Error())
		return
	}
	if !deleted {
		WriteErrorResponse(w, http.StatusNotFound, utils.GetChiURLParam(r, "id"), "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Success: true, Message: "Document deleted"})
}

// ClearDocuments godoc
// @Summary      Clear the knowledge base
// @Description  Drops every vector, stored file and document record.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DeleteResponse
// @Security     BearerAuth
// @Router       /api/documents [delete]
func (h *RAGHandler) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ClearAll(r.Context()); err != nil {
		logRH.WithTrace(r.Context()).Error("Clear all failed", "error", err)
		WriteErrorResponse(w, errorStatus(err), "", err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Success: true, Message: "Knowledge base cleared"})
}

// ServeFile godoc
// @Summary      Download a stored file
// @Tags         Documents
// @Produce      octet-stream
// @Param        id   path  int  true  "Document ID"
// @Success      200
// @Failure      404  {object}  api.JobResponse
// @Router       /files/{id} [get]
func (h *RAGHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		WriteErrorResponse(w, http.StatusNotFound, "", "File not found")
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil || doc.SourceType != commonModels.SourceFile || doc.FilePath == "" {
		WriteErrorResponse(w, http.StatusNotFound, utils.GetChiURLParam(r, "id"), "File not found")
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Filename}))
	http.ServeFile(w, r, doc.FilePath)
}

// PostIngestHandler queues an ingestion job.
// @Summary      Queue an ingestion job
// @Description  multipart/form-data with document and document_name uploads a file; a JSON body with url ingests a web page. Poll status_url for the outcome.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        document_name  formData  string  false  "The display name of the document"
// @Param        document       formData  file    false  "The file to upload"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse
// @Failure      503  {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/ingest [post]
func (h *RAGHandler) PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	newJob := newJobData{
		id:      utils.GetNewUUID(),
		traceId: logger_i.TraceID(r.Context()),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		path, filename, ok := h.stageUpload(w, r, "document")
		if !ok {
			return
		}
		if name := strings.TrimSpace(r.FormValue("document_name")); name != "" {
			filename = name
		}
		newJob.jobType = jobModel.JobTypeIngestFile
		newJob.filePath = path
		newJob.fileName = filename
	} else {
		req, ok := decodeURLRequest(w, r)
		if !ok {
			return
		}
		newJob.jobType = jobModel.JobTypeIngestURL
		newJob.url = req.URL
		newJob.fileName = req.Filename
	}

	if !CreateNewJob(r.Context(), newJob) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, newJob.id, "Job could not be queued")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of an ingestion job.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.JobResponse
// @Security     BearerAuth
// @Router       /api/status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.WithTrace(r.Context()).Debug("Get Status Request", "URL path", r.URL.Path)

	if idString == "" {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	result, isFound := GetJobStatus(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// stageUpload copies the multipart file in field into the data directory.
func (h *RAGHandler) stageUpload(w http.ResponseWriter, r *http.Request, field string) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return "", "", false
	}

	fileReader, header, err := r.FormFile(field)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return "", "", false
	}
	defer func(f io.Closer) {
		if err := f.Close(); err != nil {
			logRH.Error("Couldn't close the upload reader", "error", err)
		}
	}(fileReader)

	filename := filepath.Base(header.Filename)
	if !loader.SupportedExtension(filepath.Ext(filename)) {
		WriteErrorResponse(w, http.StatusBadRequest, filename, "Unsupported file type")
		return "", "", false
	}

	path, err := h.service.StageFile(fileReader, filename)
	if err != nil {
		logRH.WithTrace(r.Context()).Error("Could not stage upload", "file", filename, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, filename, "Storage error")
		return "", "", false
	}
	return path, filename, true
}

func decodeURLRequest(w http.ResponseWriter, r *http.Request) (api.IngestURLRequest, bool) {
	var req api.IngestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return req, false
	}
	req.URL = strings.TrimSpace(req.URL)
	if _, err := loader.ValidateURL(req.URL); err != nil {
		var loadErr *loader.LoadError
		msg := "url is required"
		if errors.As(err, &loadErr) && req.URL != "" {
			msg = loadErr.Error()
		}
		WriteErrorResponse(w, http.StatusBadRequest, req.URL, msg)
		return req, false
	}
	return req, true
}
