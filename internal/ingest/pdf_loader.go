package ingest

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"

	"autofill/internal/models"
)

// PdfLoader reads PDF files and extracts the plain text of each page.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load returns one segment per page that contains text. Pages the parser
// cannot decode are skipped rather than failing the whole document.
func (l *PdfLoader) Load(ctx context.Context, data []byte, filename string) ([]models.Segment, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var segments []models.Segment
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if len(bytes.TrimSpace([]byte(text))) == 0 {
			continue
		}

		segments = append(segments, models.Segment{
			Text:     text,
			SourceID: filename,
		})
	}

	return segments, nil
}

var _ Loader = (*PdfLoader)(nil)
