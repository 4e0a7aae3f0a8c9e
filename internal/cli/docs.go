package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its vectors and stored file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

var docsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every document from the knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runDocsClear,
}

var clearConfirmed bool

func init() {
	docsClearCmd.Flags().BoolVarP(&clearConfirmed, "yes", "y", false, "confirm clearing the knowledge base")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsClearCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	docs, err := kb.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents ingested")
		return nil
	}

	for _, d := range docs {
		cmd.Printf("%5d  %-6s %-40s %d chunks\n", d.ID, d.SourceType, d.Filename, len(d.VectorIDs))
		if d.SourceURL != "" {
			cmd.Printf("       %s\n", d.SourceURL)
		}
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid document id %q", args[0])
	}
	deleted, err := kb.DeleteDocument(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("document %d not found", id)
	}
	cmd.Printf("Deleted document %d\n", id)
	return nil
}

func runDocsClear(cmd *cobra.Command, args []string) error {
	if !clearConfirmed {
		return errors.New("refusing to clear without --yes")
	}
	if _, err := kb.ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	cmd.Println("Knowledge base cleared")
	return nil
}
