// Package source produces news articles: it reads and writes the JSON corpus
// file, fetches RSS feeds, scrapes article bodies and watches the corpus for
// changes.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/futig/news-rag/internal/entity"
)

// Layouts accepted for the "published" field. Feeds mostly use RFC 1123.
var publishedLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type corpusArticle struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Published *string `json:"published"`
	Source    *string `json:"source"`
	Text      string  `json:"text"`
}

// ParsePublished parses a feed or corpus date; unknown layouts yield nil.
func ParsePublished(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// LoadCorpus reads a news.json corpus: a JSON array of articles.
func LoadCorpus(path string) ([]entity.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var raw []corpusArticle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	articles := make([]entity.Article, len(raw))
	for i, r := range raw {
		a := entity.Article{ID: r.ID, Title: r.Title, URL: r.URL, Text: r.Text}
		if r.Published != nil {
			a.Published = ParsePublished(*r.Published)
		}
		if r.Source != nil {
			a.Source = *r.Source
		}
		articles[i] = a
	}
	return articles, nil
}

// SaveCorpus writes articles atomically: a temp file in the same directory
// is renamed over path.
func SaveCorpus(path string, articles []entity.Article) error {
	if articles == nil {
		articles = []entity.Article{}
	}

	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".news-*.json")
	if err != nil {
		return fmt.Errorf("create temp corpus: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close corpus: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}
	return nil
}
