package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/futig/news-rag/internal/builder"
)

var (
	askTopK        int
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed news",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (default RETRIEVAL_TOP_K)")
	askCmd.Flags().BoolVar(&askShowContext, "context", false, "print the retrieved context after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	return withCore(cmd.Context(), func(ctx context.Context, core *builder.Core) error {
		answer, err := core.Query.Ask(ctx, question, askTopK)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Text)
		if askShowContext && answer.Context != "" {
			fmt.Fprintf(out, "\nContext:\n%s\n", answer.Context)
		}
		return nil
	})
}
