package entity

// QueryRequest is the body of a question sent to a query surface.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryResponse is returned by the query surfaces.
type QueryResponse struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

// PassageDTO is a single retrieved passage.
type PassageDTO struct {
	ID         string  `json:"id"`
	ArticleID  string  `json:"article_id"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse is returned by the retrieval-only endpoint.
type SearchResponse struct {
	Passages []PassageDTO `json:"passages"`
}

// IngestRequest carries a batch of articles to ingest.
type IngestRequest struct {
	Articles []Article `json:"articles"`
	Rebuild  bool      `json:"rebuild,omitempty"`
}

// IndexStats describes the current index state.
type IndexStats struct {
	Backend   string `json:"backend"`
	Entries   int    `json:"entries"`
	Dimension int    `json:"dimension"`
}

// ErrorResponse is the JSON error body of the HTTP API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ResultFormat is the document format an answer can be exported to.
type ResultFormat string

const (
	FormatJSON     ResultFormat = "json"
	FormatMarkdown ResultFormat = "md"
	FormatPDF      ResultFormat = "pdf"
	FormatDOCX     ResultFormat = "docx"
)

// ToPassages converts a retrieval result for transport.
func ToPassages(result RetrievalResult) []PassageDTO {
	passages := make([]PassageDTO, len(result))
	for i, se := range result {
		passages[i] = PassageDTO{
			ID:         se.Entry.ID,
			ArticleID:  se.Entry.Metadata.ArticleID,
			Title:      se.Entry.Metadata.Title,
			Text:       se.Entry.Document,
			Similarity: se.Similarity,
		}
	}
	return passages
}

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatPDF, FormatDOCX:
		return true
	}
	return false
}
