package mcp

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/entity"
)

type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed news"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of passages to ground the answer on (server default when omitted)"`
}

type AskOutput struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find similar news passages for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (server default when omitted)"`
}

type SearchOutput struct {
	Passages []entity.PassageDTO `json:"passages"`
	Count    int                 `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_news",
		Description: "Answer a question using only passages retrieved from the indexed news articles",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_news",
		Description: "Find the news passages most similar to a query, ranked by cosine similarity",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.query.Ask(ctx, input.Question, input.TopK)
	if err != nil {
		ctxzap.Warn(ctx, "ask_news failed", zap.Error(err))
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer.Text, Context: answer.Context}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	result, err := s.query.Search(ctx, input.Query, input.TopK)
	if err != nil {
		ctxzap.Warn(ctx, "search_news failed", zap.Error(err))
		return nil, SearchOutput{}, err
	}

	passages := entity.ToPassages(result)
	return nil, SearchOutput{Passages: passages, Count: len(passages)}, nil
}
