// Package index defines the vector index contract shared by every backend
// and provides the in-process implementation.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/futig/news-rag/internal/entity"
)

// VectorIndex stores IndexEntry values and answers nearest-neighbour queries
// by cosine similarity. Mutations are atomic per call and mutually exclusive;
// queries may run concurrently with each other.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []entity.IndexEntry) error
	Query(ctx context.Context, vector entity.Embedding, k int) (entity.RetrievalResult, error)
	Delete(ctx context.Context, id string) error
	// DeleteArticle removes the entries of articleID whose id is not in keep.
	DeleteArticle(ctx context.Context, articleID string, keep []string) error
	Count(ctx context.Context) (int, error)
	// Reset drops every entry and forgets the established dimension.
	Reset(ctx context.Context) error
	// Dimension is 0 until the first successful upsert.
	Dimension() int
	Close() error
}

// Cosine returns the cosine similarity of a and b. A zero-norm operand yields 0.
func Cosine(a, b entity.Embedding) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank sorts scored entries by similarity descending, then by ID ascending,
// and truncates to k.
func Rank(scored entity.RetrievalResult, k int) entity.RetrievalResult {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Entry.ID < scored[j].Entry.ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// ValidateUpsert checks a batch against the index dimension (0 if not yet
// established) and returns the dimension the batch implies.
func ValidateUpsert(entries []entity.IndexEntry, dim int) (int, error) {
	for i, e := range entries {
		if e.ID == "" {
			return 0, fmt.Errorf("%w: entry %d has an empty id", entity.ErrInvalidArgument, i)
		}
		if len(e.Vector) == 0 {
			return 0, fmt.Errorf("%w: entry %q has an empty vector", entity.ErrInvalidArgument, e.ID)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return 0, fmt.Errorf("%w: entry %q has dimension %d, index expects %d", entity.ErrDimensionMismatch, e.ID, len(e.Vector), dim)
		}
	}
	return dim, nil
}

// ValidateQuery checks k and the query vector against the index dimension.
func ValidateQuery(vector entity.Embedding, k, dim int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", entity.ErrInvalidArgument, k)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty query vector", entity.ErrInvalidArgument)
	}
	if dim != 0 && len(vector) != dim {
		return fmt.Errorf("%w: query has dimension %d, index expects %d", entity.ErrDimensionMismatch, len(vector), dim)
	}
	return nil
}

// Dedupe keeps the last occurrence of every id, preserving first-seen order.
func Dedupe(entries []entity.IndexEntry) []entity.IndexEntry {
	pos := make(map[string]int, len(entries))
	out := make([]entity.IndexEntry, 0, len(entries))
	for _, e := range entries {
		if i, ok := pos[e.ID]; ok {
			out[i] = e
			continue
		}
		pos[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}

func cloneEntry(e entity.IndexEntry) entity.IndexEntry {
	e.Vector = append(entity.Embedding(nil), e.Vector...)
	return e
}
