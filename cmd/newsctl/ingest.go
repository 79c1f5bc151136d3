package main

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/builder"
	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/source"
)

var (
	ingestCorpus  string
	ingestRebuild bool
	ingestWatch   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and index the corpus file",
	Long: `Loads the corpus file and indexes every article. With --rebuild the
collection is dropped first. With --watch the corpus is re-ingested every
time the file changes, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCorpus, "corpus", "c", "", "corpus file (default SOURCE_CORPUS_PATH)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "drop and recreate the collection before indexing")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "re-ingest whenever the corpus file changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	return withCore(cmd.Context(), func(ctx context.Context, core *builder.Core) error {
		path := ingestCorpus
		if path == "" {
			path = core.Config.SourceCfg.CorpusPath
		}

		report, err := core.Ingest.IngestCorpus(ctx, path, ingestRebuild)
		if err != nil {
			return err
		}
		printReport(cmd, report)

		if !ingestWatch {
			return nil
		}

		cmd.Printf("Watching %s for changes\n", path)
		// Changes of a live corpus are merged into the index, never rebuilt.
		return source.Watch(ctx, path, core.Config.SourceCfg.WatchDebounce, func(ctx context.Context) error {
			report, err := core.Ingest.IngestCorpus(ctx, path, false)
			if err != nil {
				ctxzap.Error(ctx, "re-ingest failed", zap.Error(err))
				return nil
			}
			printReport(cmd, report)
			return nil
		})
	})
}

func printReport(cmd *cobra.Command, report *entity.IngestReport) {
	cmd.Printf("Run %s: %d articles, %d chunks, %d indexed, %d failed\n",
		report.RunID, report.Articles, report.Chunks, report.Indexed, len(report.Failures))
	for _, f := range report.Failures {
		item := f.ArticleID
		if f.ChunkID != "" {
			item = f.ChunkID
		}
		cmd.Printf("  [%s] %s: %s\n", f.Stage, item, f.Error)
	}
}
