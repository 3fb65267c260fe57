package ingest

import (
	"context"
	"strings"
	"unicode/utf8"

	"autofill/internal/models"
)

// TextLoader reads plain text and markdown files.
type TextLoader struct{}

// NewTextLoader creates a new TextLoader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load returns a single segment holding the file content, or no segments
// for an empty file.
func (l *TextLoader) Load(ctx context.Context, data []byte, filename string) ([]models.Segment, error) {
	if !utf8.Valid(data) {
		return nil, errInvalidEncoding
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []models.Segment{{Text: text, SourceID: filename}}, nil
}

var _ Loader = (*TextLoader)(nil)
