package entity

// Embedding is a fixed-length vector representation of a text.
type Embedding []float32

// EntryMetadata is the metadata stored alongside every index entry.
type EntryMetadata struct {
	Title     string `json:"title"`
	ArticleID string `json:"article_id"`
}

// IndexEntry is a single stored passage of a vector index.
// ID equals the ChunkID of the chunk it was built from.
type IndexEntry struct {
	ID       string        `json:"id"`
	Vector   Embedding     `json:"vector"`
	Document string        `json:"document"`
	Metadata EntryMetadata `json:"metadata"`
}

// ScoredEntry is an index entry paired with its similarity to a query vector.
type ScoredEntry struct {
	Entry      IndexEntry `json:"entry"`
	Similarity float64    `json:"similarity"`
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult []ScoredEntry

// Documents returns the passage texts in rank order.
func (r RetrievalResult) Documents() []string {
	docs := make([]string, len(r))
	for i, se := range r {
		docs[i] = se.Entry.Document
	}
	return docs
}

// Answer is a generated answer together with the exact context it was grounded on.
type Answer struct {
	Text    string `json:"answer"`
	Context string `json:"context"`
}

// NewIndexEntry builds the index entry for an embedded chunk.
func NewIndexEntry(chunk Chunk, vector Embedding) IndexEntry {
	return IndexEntry{
		ID:       chunk.ChunkID,
		Vector:   vector,
		Document: chunk.Text,
		Metadata: EntryMetadata{
			Title:     chunk.Title,
			ArticleID: chunk.ArticleID,
		},
	}
}
