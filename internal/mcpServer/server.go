package mcpServer

import (
	"context"
	"errors"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

// KnowledgeBase is the slice of rag.Service exposed as MCP tools.
type KnowledgeBase interface {
	Ask(ctx context.Context, question string, sessionID string) (api.AskResponse, error)
	IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
}

type Server struct {
	kb     KnowledgeBase
	server *mcp.Server
	logger *logger_i.Logger
}

func NewServer(kb KnowledgeBase) (*Server, error) {
	if kb == nil {
		return nil, errors.New("knowledge base is required")
	}
	s := &Server{
		kb:     kb,
		server: mcp.NewServer(&mcp.Implementation{Name: "knowledge-base", Version: Version}, nil),
		logger: logger_i.NewLogger("MCP"),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
