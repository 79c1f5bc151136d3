package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/futig/news-rag/internal/entity"
	"github.com/futig/news-rag/internal/pkg/formatter"
	"github.com/futig/news-rag/internal/pkg/logger"
	"github.com/futig/news-rag/internal/pkg/response"
)

const (
	maxQueryBodyBytes  = 64 << 10
	maxIngestBodyBytes = 32 << 20
	maxTopK            = 100
)

type Handler struct {
	query     QueryUsecase
	ingest    IngestUsecase
	formatter *formatter.Factory
}

func NewHandler(query QueryUsecase, ingest IngestUsecase) *Handler {
	return &Handler{
		query:     query,
		ingest:    ingest,
		formatter: formatter.NewFactory(),
	}
}

// QueryNews handles POST /query-news
func (h *Handler) QueryNews(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "QueryNews")

	format := entity.ResultFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatJSON
	}
	if !format.IsValid() {
		h.respondError(ctx, w, http.StatusBadRequest, "format must be one of: json, md, pdf, docx", nil)
		return
	}

	req, ok := h.decodeQuery(ctx, w, r)
	if !ok {
		return
	}

	ctx = logger.AddFields(ctx, zap.String("format", string(format)), zap.Int("top_k", req.TopK))
	ctxzap.Info(ctx, "answering question", zap.Int("query_len", len(req.Query)))

	answer, err := h.query.Ask(ctx, req.Query, req.TopK)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	if format == entity.FormatJSON {
		response.Success(w, entity.QueryResponse{Answer: answer.Text, Context: answer.Context})
		return
	}

	fmtr, err := h.formatter.Create(format)
	if err != nil {
		h.respondError(ctx, w, http.StatusNotImplemented, "format not implemented", err)
		return
	}

	doc, err := fmtr.Format(req.Query, answer)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "failed to format answer", err)
		return
	}

	w.Header().Set("Content-Type", fmtr.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"answer%s\"", fmtr.FileExtension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Search handles POST /search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Search")

	req, ok := h.decodeQuery(ctx, w, r)
	if !ok {
		return
	}

	result, err := h.query.Search(ctx, req.Query, req.TopK)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.SearchResponse{Passages: entity.ToPassages(result)})
}

// IngestArticles handles POST /articles
func (h *Handler) IngestArticles(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "IngestArticles")

	var req entity.IngestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Articles) == 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "at least one article is required", nil)
		return
	}

	ctxzap.Info(ctx, "ingesting articles", zap.Int("articles", len(req.Articles)), zap.Bool("rebuild", req.Rebuild))

	ingest := h.ingest.Ingest
	if req.Rebuild {
		ingest = h.ingest.Rebuild
	}

	report, err := ingest(ctx, req.Articles)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, report)
}

// DeleteChunk handles DELETE /chunks/{chunk_id}
func (h *Handler) DeleteChunk(w http.ResponseWriter, r *http.Request) {
	chunkID := chi.URLParam(r, "chunk_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("chunk_id", chunkID),
		zap.String("action", "DeleteChunk"),
	)

	if err := h.ingest.DeleteChunk(ctx, chunkID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// Stats handles GET /index/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Stats")

	stats, err := h.ingest.Stats(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, stats)
}

func (h *Handler) decodeQuery(ctx context.Context, w http.ResponseWriter, r *http.Request) (entity.QueryRequest, bool) {
	var req entity.QueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "query is required", nil)
		return req, false
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		h.respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 0 and %d", maxTopK), nil)
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message)
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrInvalidArgument):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid argument", err)
	case errors.Is(err, entity.ErrNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "index not found", err)
	case errors.Is(err, entity.ErrDimensionMismatch):
		h.respondError(ctx, w, http.StatusConflict, "embedding dimension mismatch", err)
	case errors.Is(err, entity.ErrEmbeddingUnavailable), errors.Is(err, entity.ErrMalformedEmbedding):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "embedding service unavailable", err)
	case errors.Is(err, entity.ErrGenerationUnavailable):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "generation service unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
