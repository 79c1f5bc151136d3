// Package chunker splits article text into fixed-size word windows.
package chunker

import (
	"fmt"
	"strings"

	"github.com/futig/news-rag/internal/entity"
)

// DefaultChunkSize is the number of words per chunk used by the ingestion pipeline.
const DefaultChunkSize = 200

// ChunkID returns the deterministic identifier of the n-th chunk of an article.
func ChunkID(articleID string, sequenceIndex int) string {
	return fmt.Sprintf("%s_%d", articleID, sequenceIndex)
}

// Chunk splits the article text on whitespace and groups the words into
// consecutive, non-overlapping chunks of chunkSize words. The last chunk may
// be shorter. Whitespace-only text yields no chunks.
func Chunk(article entity.Article, chunkSize int) ([]entity.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", entity.ErrInvalidArgument, chunkSize)
	}

	words := strings.Fields(article.Text)
	if len(words) == 0 {
		return nil, nil
	}

	chunks := make([]entity.Chunk, 0, (len(words)+chunkSize-1)/chunkSize)
	for start := 0; start < len(words); start += chunkSize {
		end := min(start+chunkSize, len(words))
		seq := len(chunks)
		chunks = append(chunks, entity.Chunk{
			ChunkID:       ChunkID(article.ID, seq),
			ArticleID:     article.ID,
			Title:         article.Title,
			Text:          strings.Join(words[start:end], " "),
			SequenceIndex: seq,
		})
	}

	return chunks, nil
}

// ChunkAll chunks every article in order. Chunking is pure, so the only
// possible failure is an invalid chunk size, which aborts the whole call.
func ChunkAll(articles []entity.Article, chunkSize int) ([]entity.Chunk, error) {
	var all []entity.Chunk
	for _, article := range articles {
		chunks, err := Chunk(article, chunkSize)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}
