package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/bootstrap"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

// KnowledgeBase is the part of rag.Service the CLI drives.
type KnowledgeBase interface {
	Ask(ctx context.Context, question string, sessionID string) (api.AskResponse, error)
	IngestFile(ctx context.Context, path, filename string) (ingest.Result, error)
	IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error)
	StageFile(r io.Reader, filename string) (string, error)
	DeleteDocument(ctx context.Context, id int64) (bool, error)
	ClearAll(ctx context.Context) (bool, error)
	ListDocuments(ctx context.Context) ([]commonModels.Document, error)
}

var (
	configPath string
	kb         KnowledgeBase
	closeKB    func()
)

var rootCmd = &cobra.Command{
	Use:               "kbctl",
	Short:             "Operate the knowledge base from the command line",
	Long:              `Ingest files and web pages, ask questions and manage documents using the same stores as the API server.`,
	SilenceUsage:      true,
	PersistentPreRunE: openKnowledgeBase,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeKB != nil {
			closeKB()
			closeKB = nil
			kb = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults to $KB_CONFIG or config/config.yaml)")
}

// SetKnowledgeBase injects a ready service, skipping bootstrap. Used by tests.
func SetKnowledgeBase(k KnowledgeBase) {
	kb = k
	closeKB = nil
}

func openKnowledgeBase(cmd *cobra.Command, args []string) error {
	if kb != nil {
		return nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// command output owns stdout
	logger_i.InitWriter(cfg.Log.Level, cfg.Log.JSON, os.Stderr)

	app, err := bootstrap.Build(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("starting knowledge base: %w", err)
	}
	kb = app.Service
	closeKB = app.Close
	return nil
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
