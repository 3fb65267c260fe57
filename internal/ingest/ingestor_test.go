package ingest

import (
	"context"
	"errors"
	"testing"

	"autofill/internal/models"
	"autofill/pkg/logger"
)

func newTestIngestor(t *testing.T) *Ingestor {
	t.Helper()
	splitter, err := NewTokenSplitterWithTokenizer(64, 8, &wordTokenizer{})
	if err != nil {
		t.Fatalf("failed to build splitter: %v", err)
	}
	return NewIngestor(splitter, logger.New("ingest_test", ""))
}

func TestIngest_TextFile(t *testing.T) {
	ing := newTestIngestor(t)

	segments, err := ing.Ingest(context.Background(), []byte("Revenue: $2M in fiscal 2025."), "report.txt")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Ingest() produced %d segments, want 1", len(segments))
	}
	if segments[0].SourceID != "report.txt" {
		t.Errorf("SourceID = %q, want report.txt", segments[0].SourceID)
	}
}

func TestIngest_EmptyFileIsValid(t *testing.T) {
	ing := newTestIngestor(t)

	segments, err := ing.Ingest(context.Background(), []byte("   \n"), "empty.txt")
	if err != nil {
		t.Fatalf("Ingest() on empty file error = %v, want nil", err)
	}
	if len(segments) != 0 {
		t.Errorf("Ingest() produced %d segments for empty file, want 0", len(segments))
	}
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	ing := newTestIngestor(t)

	_, err := ing.Ingest(context.Background(), []byte("binary"), "image.png")
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Ingest() error = %v, want *models.ParseError", err)
	}
	if parseErr.Filename != "image.png" {
		t.Errorf("ParseError.Filename = %q, want image.png", parseErr.Filename)
	}
}

func TestIngest_InvalidEncoding(t *testing.T) {
	ing := newTestIngestor(t)

	_, err := ing.Ingest(context.Background(), []byte{0xff, 0xfe, 0xfd}, "garbage.txt")
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Ingest() error = %v, want *models.ParseError", err)
	}
}

func TestExtractText_JoinsPages(t *testing.T) {
	ing := newTestIngestor(t)

	text, err := ing.ExtractText(context.Background(), []byte("Name: ____\nDate: ____"), "form.txt")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text == "" {
		t.Error("ExtractText() returned empty text")
	}
}
