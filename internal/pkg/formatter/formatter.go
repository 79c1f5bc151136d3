// Package formatter renders an answer as a downloadable document.
package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/news-rag/internal/entity"
)

const baseTitle = "News answer"

type Formatter interface {
	Format(question string, answer *entity.Answer) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// sources splits the answer context back into the passages it was built from.
func sources(answer *entity.Answer) []string {
	var out []string
	for _, p := range strings.Split(answer.Context, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
