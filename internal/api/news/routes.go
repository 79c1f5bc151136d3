package news

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers news routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/query-news", h.QueryNews)
	r.Post("/search", h.Search)
	r.Post("/articles", h.IngestArticles)
	r.Delete("/chunks/{chunk_id}", h.DeleteChunk)
	r.Get("/index/stats", h.Stats)
}
