package entity

import "time"

// Article is a news article as supplied by an article source.
// Articles are immutable once ingested and unique by ID within a corpus.
type Article struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	Published *time.Time `json:"published,omitempty"`
	Source    string     `json:"source"`
	Text      string     `json:"text"`
}

// Chunk is a contiguous word span of an article, the unit of retrieval.
type Chunk struct {
	ChunkID       string `json:"chunk_id"`
	ArticleID     string `json:"article_id"`
	Title         string `json:"title"`
	Text          string `json:"text_chunk"`
	SequenceIndex int    `json:"sequence_index"`
}
