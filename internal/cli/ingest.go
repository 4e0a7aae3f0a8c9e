package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add content to the knowledge base",
}

var ingestFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Ingest a local file",
	Long:  `Copies the file into the data directory and ingests the copy, so the original is never moved or deleted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFile,
}

var ingestURLCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Ingest a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestURL,
}

var ingestFilename string

func init() {
	ingestURLCmd.Flags().StringVar(&ingestFilename, "filename", "", "display name for the page (defaults to the last path segment or <domain>.html)")

	ingestCmd.AddCommand(ingestFileCmd)
	ingestCmd.AddCommand(ingestURLCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	src, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer src.Close()

	filename := filepath.Base(args[0])
	staged, err := kb.StageFile(src, filename)
	if err != nil {
		return fmt.Errorf("staging %s: %w", filename, err)
	}

	res, err := kb.IngestFile(cmd.Context(), staged, filename)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", filename, err)
	}
	printResult(cmd, filename, res)
	return nil
}

func runIngestURL(cmd *cobra.Command, args []string) error {
	res, err := kb.IngestURL(cmd.Context(), args[0], ingestFilename)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", args[0], err)
	}
	printResult(cmd, args[0], res)
	return nil
}

func printResult(cmd *cobra.Command, source string, res ingest.Result) {
	if res.Duplicate {
		cmd.Printf("%s already ingested as document %d\n", source, res.DocumentID)
		return
	}
	cmd.Printf("Ingested %s as document %d (%d chunks, %s)\n", source, res.DocumentID, res.Chunks, res.Strategy)
}
