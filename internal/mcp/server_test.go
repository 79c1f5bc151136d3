package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/news-rag/internal/entity"
)

type mockQuery struct {
	err error
	k   int
}

func (m *mockQuery) Ask(_ context.Context, question string, k int) (*entity.Answer, error) {
	m.k = k
	if m.err != nil {
		return nil, m.err
	}
	return &entity.Answer{Text: "answer: " + question, Context: "the cat sat"}, nil
}

func (m *mockQuery) Search(_ context.Context, _ string, k int) (entity.RetrievalResult, error) {
	m.k = k
	if m.err != nil {
		return nil, m.err
	}
	return entity.RetrievalResult{
		{Entry: entity.IndexEntry{ID: "A_0", Document: "the cat sat", Metadata: entity.EntryMetadata{ArticleID: "A", Title: "Cats"}}, Similarity: 0.8},
		{Entry: entity.IndexEntry{ID: "B_0", Document: "dogs run fast", Metadata: entity.EntryMetadata{ArticleID: "B", Title: "Dogs"}}, Similarity: 0.1},
	}, nil
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrMissingQueryUsecase)

	s, err := NewServer(&mockQuery{})
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer and context", func(t *testing.T) {
		q := &mockQuery{}
		s, err := NewServer(q)
		require.NoError(t, err)

		_, out, err := s.handleAsk(ctx, nil, AskInput{Question: "where is the cat?", TopK: 2})
		require.NoError(t, err)
		assert.Equal(t, AskOutput{Answer: "answer: where is the cat?", Context: "the cat sat"}, out)
		assert.Equal(t, 2, q.k)
	})

	t.Run("propagates errors", func(t *testing.T) {
		s, err := NewServer(&mockQuery{err: entity.ErrGenerationUnavailable})
		require.NoError(t, err)

		_, _, err = s.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, entity.ErrGenerationUnavailable)
	})
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked passages", func(t *testing.T) {
		s, err := NewServer(&mockQuery{})
		require.NoError(t, err)

		_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "cat"})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "A_0", out.Passages[0].ID)
		assert.Equal(t, "Cats", out.Passages[0].Title)
		assert.Equal(t, 0.8, out.Passages[0].Similarity)
	})

	t.Run("propagates errors", func(t *testing.T) {
		s, err := NewServer(&mockQuery{err: errors.New("index down")})
		require.NoError(t, err)

		_, _, err = s.handleSearch(ctx, nil, SearchInput{Query: "cat"})
		assert.EqualError(t, err, "index down")
	})
}

func TestServer_InMemorySession(t *testing.T) {
	ctx := context.Background()
	s, err := NewServer(&mockQuery{})
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ask_news", "search_news"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "ask_news",
		Arguments: map[string]any{"question": "cat?"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "answer: cat?")
}
