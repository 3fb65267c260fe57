package ingest

import (
	"bytes"
	"context"
	"strings"

	"github.com/unidoc/unioffice/v2/document"

	"autofill/internal/models"
)

// DocxLoader reads Word (.docx) files, extracting paragraph and table text.
type DocxLoader struct{}

// NewDocxLoader creates a new DocxLoader.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load returns a single segment holding the document's full text. Word
// files carry no usable page boundaries, so the splitter handles sizing.
func (l *DocxLoader) Load(ctx context.Context, data []byte, filename string) ([]models.Segment, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var textBuilder strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			textBuilder.WriteString(r.Text())
		}
		textBuilder.WriteString("\n")
	}

	// Table cells are where form-like documents keep their values.
	for _, tbl := range doc.Tables() {
		for _, row := range tbl.Rows() {
			for _, cell := range row.Cells() {
				for _, p := range cell.Paragraphs() {
					for _, r := range p.Runs() {
						textBuilder.WriteString(r.Text())
					}
					textBuilder.WriteString("\n")
				}
			}
		}
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []models.Segment{{Text: text, SourceID: filename}}, nil
}

var _ Loader = (*DocxLoader)(nil)
