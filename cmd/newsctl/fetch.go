package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futig/news-rag/internal/source"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

var fetchOutput string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Build the corpus file from the configured RSS feeds",
	Long: `Reads every feed in SOURCE_FEED_URLS, downloads each linked article,
keeps its paragraph text and writes the result to the corpus file.
Articles that fail to download or have no text are skipped.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "corpus file to write (default SOURCE_CORPUS_PATH)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.SourceCfg.FeedURLs) == 0 {
		return fmt.Errorf("SOURCE_FEED_URLS is empty")
	}

	output := fetchOutput
	if output == "" {
		output = cfg.SourceCfg.CorpusPath
	}

	client := pkghttp.NewClient(
		pkghttp.WithRequestTimeout(cfg.SourceCfg.FetchTimeout),
		pkghttp.WithRequestLogging(),
	)
	fetcher := source.NewFetcher(source.FetcherConfig{
		FeedURLs:   cfg.SourceCfg.FeedURLs,
		MaxPerFeed: cfg.SourceCfg.MaxArticles,
	}, client)

	articles, err := fetcher.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch feeds: %w", err)
	}

	if err := source.SaveCorpus(output, articles); err != nil {
		return err
	}

	cmd.Printf("Saved %d articles to %s\n", len(articles), output)
	return nil
}
