package index

import (
	"context"
	"sync"

	"github.com/futig/news-rag/internal/entity"
)

// Memory is an in-process VectorIndex with exhaustive search.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entity.IndexEntry
	dim     int
}

var _ VectorIndex = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entity.IndexEntry)}
}

func (m *Memory) Upsert(_ context.Context, entries []entity.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dim, err := ValidateUpsert(entries, m.dim)
	if err != nil {
		return err
	}

	for _, e := range entries {
		m.entries[e.ID] = cloneEntry(e)
	}
	m.dim = dim
	return nil
}

func (m *Memory) Query(_ context.Context, vector entity.Embedding, k int) (entity.RetrievalResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ValidateQuery(vector, k, m.dim); err != nil {
		return nil, err
	}

	scored := make(entity.RetrievalResult, 0, len(m.entries))
	for _, e := range m.entries {
		scored = append(scored, entity.ScoredEntry{
			Entry:      cloneEntry(e),
			Similarity: Cosine(vector, e.Vector),
		})
	}
	return Rank(scored, k), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *Memory) DeleteArticle(_ context.Context, articleID string, keep []string) error {
	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.Metadata.ArticleID != articleID {
			continue
		}
		if _, ok := kept[id]; !ok {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entity.IndexEntry)
	m.dim = 0
	return nil
}

func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

func (m *Memory) Close() error { return nil }
