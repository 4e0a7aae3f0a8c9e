package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the knowledge base a question",
	Long: `Answers from the ingested documents. Sessions live in process memory,
so --session only links questions asked within one kbctl process.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askSession     string
	askShowSources bool
)

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id for conversational follow-ups")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the supporting chunks")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	resp, err := kb.Ask(cmd.Context(), strings.Join(args, " "), askSession)
	if err != nil {
		return err
	}
	if resp.Error {
		return errors.New(resp.Answer)
	}

	cmd.Println(resp.Answer)
	if askShowSources {
		cmd.Println()
		for i, c := range resp.SourceChunks {
			cmd.Printf("[%d] score %.3f %v\n", i+1, c.Score, c.Metadata["source"])
		}
	}
	return nil
}
