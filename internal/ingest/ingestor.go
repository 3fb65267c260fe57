package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autofill/internal/models"
	"autofill/pkg/logger"
)

var errInvalidEncoding = errors.New("file is not valid UTF-8 text")

// Ingestor parses an uploaded file into segments ready for indexing.
type Ingestor struct {
	splitter *TokenSplitter
	log      *logger.Logger
}

// NewIngestor creates an Ingestor with the given splitter.
func NewIngestor(splitter *TokenSplitter, log *logger.Logger) *Ingestor {
	return &Ingestor{splitter: splitter, log: log}
}

// Ingest parses raw file bytes into chunked segments. Each segment's
// SourceID is the original filename. An empty result is valid: a readable
// file with no extractable text yields zero segments, not an error.
func (i *Ingestor) Ingest(ctx context.Context, data []byte, filename string) ([]models.Segment, error) {
	loader := loaderFor(filename)
	if loader == nil {
		return nil, &models.ParseError{Filename: filename, Err: fmt.Errorf("unsupported file extension")}
	}

	pages, err := loader.Load(ctx, data, filename)
	if err != nil {
		return nil, &models.ParseError{Filename: filename, Err: err}
	}

	segments, err := i.splitter.Split(ctx, pages)
	if err != nil {
		return nil, &models.ParseError{Filename: filename, Err: err}
	}

	i.log.WithPayload(map[string]interface{}{
		"filename": filename,
		"pages":    len(pages),
		"segments": len(segments),
	}).Info("Parsed document")

	return segments, nil
}

// ExtractText parses the file and returns its full text without chunking.
// Form schema inference uses this to show the model the whole form at once.
func (i *Ingestor) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	loader := loaderFor(filename)
	if loader == nil {
		return "", &models.ParseError{Filename: filename, Err: fmt.Errorf("unsupported file extension")}
	}

	pages, err := loader.Load(ctx, data, filename)
	if err != nil {
		return "", &models.ParseError{Filename: filename, Err: err}
	}

	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n"), nil
}
