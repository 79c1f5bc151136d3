package main

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"

	"github.com/futig/news-rag/internal/builder"
	"github.com/futig/news-rag/internal/config"
)

var environment string

var rootCmd = &cobra.Command{
	Use:           "newsctl",
	Short:         "Fetch, index and query the news corpus",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&environment, "env", "local", "Environment to run (local, prod, or custom)")
}

// withCore builds the pipeline, runs fn with a context carrying its logger
// and releases the pipeline afterwards.
func withCore(ctx context.Context, fn func(ctx context.Context, core *builder.Core) error) error {
	core, err := builder.Load(ctx, environment)
	if err != nil {
		return err
	}
	defer core.Close(context.WithoutCancel(ctx))

	return fn(ctxzap.ToContext(ctx, core.Logger), core)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
