package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/futig/news-rag/internal/builder"
	"github.com/futig/news-rag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the news tools over the Model Context Protocol",
	Long: `Starts an MCP server exposing the ask_news and search_news tools.

MCP_TRANSPORT selects stdio (default, for desktop assistants) or http,
in which case the server listens on MCP_ADDR.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withCore(cmd.Context(), func(ctx context.Context, core *builder.Core) error {
		server, err := mcp.NewServer(core.Query)
		if err != nil {
			return err
		}

		if core.Config.MCPCfg.Transport == "http" {
			// stdout stays free for stdio sessions, so status goes to stderr.
			cmd.PrintErrf("MCP server listening on %s\n", core.Config.MCPCfg.Addr)
			return server.RunHTTP(ctx, core.Config.MCPCfg.Addr)
		}
		return server.Run(ctx)
	})
}
