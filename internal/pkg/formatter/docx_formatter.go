package formatter

import (
	"bytes"
	"fmt"

	"github.com/unidoc/unioffice/document"

	"github.com/futig/news-rag/internal/entity"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(question string, answer *entity.Answer) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	heading := func(style, text string) {
		p := doc.AddParagraph()
		p.SetStyle(style)
		p.AddRun().AddText(text)
	}
	body := func(text string) {
		doc.AddParagraph().AddRun().AddText(text)
	}

	heading("Heading1", baseTitle)
	heading("Heading2", "Question")
	body(question)
	heading("Heading2", "Answer")
	body(answer.Text)

	if src := sources(answer); len(src) > 0 {
		heading("Heading2", "Sources")
		for i, s := range src {
			body(fmt.Sprintf("%d. %s", i+1, s))
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
