package llm

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector answers with the first line of the context section of the
// prompt, or admits it has nothing to go on.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{logger: logger}
}

func (m *MockConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer")

	_, after, ok := strings.Cut(prompt, "Context:\n")
	if !ok {
		return "I don't know.", nil
	}
	body, _, _ := strings.Cut(after, "\n\nAnswer:")
	first, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	if first == "" {
		return "The provided context is not enough to answer this question.", nil
	}
	return "Based on the news: " + first, nil
}
