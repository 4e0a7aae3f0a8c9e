package mcpServer

import (
	"context"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the knowledge base"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional conversation id, follow-up questions are resolved against its history"`
}

type IngestURLInput struct {
	URL      string `json:"url" jsonschema:"http or https page to ingest"`
	Filename string `json:"filename,omitempty" jsonschema:"optional display name for the document"`
}

type IngestURLOutput struct {
	DocumentID int64  `json:"document_id"`
	Duplicate  bool   `json:"duplicate"`
	Chunks     int    `json:"chunks"`
	Strategy   string `json:"chunking_strategy,omitempty"`
}

type ListDocumentsInput struct{}

type DocumentOutput struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	SourceType   string `json:"source_type"`
	SourceURL    string `json:"source_url,omitempty"`
	DocumentType string `json:"document_type"`
	Chunks       int    `json:"chunks"`
}

type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the ingested documents and return the supporting chunks",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_url",
		Description: "Fetch a web page and add it to the knowledge base",
	}, s.handleIngestURL)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every document in the knowledge base",
	}, s.handleListDocuments)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, api.AskResponse, error) {
	resp, err := s.kb.Ask(ctx, input.Question, input.SessionID)
	if err != nil {
		return nil, api.AskResponse{}, err
	}
	return nil, resp, nil
}

func (s *Server) handleIngestURL(ctx context.Context, _ *mcp.CallToolRequest, input IngestURLInput) (*mcp.CallToolResult, IngestURLOutput, error) {
	res, err := s.kb.IngestURL(ctx, input.URL, input.Filename)
	if err != nil {
		s.logger.Error("ingest_url failed", "url", input.URL, "error", err)
		return nil, IngestURLOutput{}, err
	}
	return nil, IngestURLOutput{
		DocumentID: res.DocumentID,
		Duplicate:  res.Duplicate,
		Chunks:     res.Chunks,
		Strategy:   res.Strategy,
	}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.kb.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := ListDocumentsOutput{Documents: make([]DocumentOutput, len(docs)), Count: len(docs)}
	for i, d := range docs {
		out.Documents[i] = DocumentOutput{
			ID:           d.ID,
			Filename:     d.Filename,
			SourceType:   string(d.SourceType),
			SourceURL:    d.SourceURL,
			DocumentType: d.DocumentType,
			Chunks:       len(d.VectorIDs),
		}
	}
	return nil, out, nil
}
