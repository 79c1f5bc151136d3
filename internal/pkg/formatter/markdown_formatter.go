package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/news-rag/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(question string, answer *entity.Answer) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	fmt.Fprintf(&buf, "## Question\n\n%s\n\n", question)
	fmt.Fprintf(&buf, "## Answer\n\n%s\n", answer.Text)

	if src := sources(answer); len(src) > 0 {
		buf.WriteString("\n## Sources\n\n")
		for i, s := range src {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, s)
		}
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
