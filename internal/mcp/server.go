// Package mcp exposes news search and question answering as Model Context
// Protocol tools.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/futig/news-rag/internal/entity"
)

const Version = "1.0.0"

var ErrMissingQueryUsecase = errors.New("query usecase is required")

type QueryUsecase interface {
	Ask(ctx context.Context, question string, k int) (*entity.Answer, error)
	Search(ctx context.Context, question string, k int) (entity.RetrievalResult, error)
}

type Server struct {
	query  QueryUsecase
	server *mcp.Server
}

func NewServer(query QueryUsecase) (*Server, error) {
	if query == nil {
		return nil, ErrMissingQueryUsecase
	}

	s := &Server{
		query: query,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "news-rag",
			Version: Version,
		}, nil),
	}
	s.registerTools()

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler returns the streamable HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
