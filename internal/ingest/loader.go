package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"autofill/internal/models"
)

// Loader reads one document format and converts the raw upload into
// page-level segments. Loaders do not chunk; that is the splitter's job.
type Loader interface {
	Load(ctx context.Context, data []byte, filename string) ([]models.Segment, error)
}

// loaderFor dispatches on the file extension. Unknown extensions return
// nil; the caller reports a ParseError.
func loaderFor(filename string) Loader {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return NewPdfLoader()
	case ".docx":
		return NewDocxLoader()
	case ".xlsx":
		return NewXlsxLoader()
	case ".txt", ".md":
		return NewTextLoader()
	default:
		return nil
	}
}
