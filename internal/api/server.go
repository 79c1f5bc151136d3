package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/api/docs"
	"github.com/futig/news-rag/internal/api/middleware"
	newsapi "github.com/futig/news-rag/internal/api/news"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(newsHandler *newsapi.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	// Generation with retries can take a while.
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	docs.RegisterRoutes(r)

	newsapi.RegisterRoutes(r, newsHandler)

	return r
}
