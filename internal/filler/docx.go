package filler

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/unidoc/unioffice/v2/document"
)

// fixedFillTime replaces the wall-clock timestamps the document writers
// stamp into their output, so that filling the same template with the same
// values twice produces byte-identical files.
var fixedFillTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PlaceholderTextFiller replaces {{key}} placeholders in a .docx template,
// including inside table cells. Unmatched placeholders are left verbatim.
type PlaceholderTextFiller struct{}

// Fill rewrites every paragraph whose text contains a known placeholder.
func (f *PlaceholderTextFiller) Fill(ctx context.Context, template []byte, values map[string]string) ([]byte, error) {
	doc, err := document.Read(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("failed to read docx template: %w", err)
	}

	for _, para := range doc.Paragraphs() {
		replaceInParagraph(para, values)
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				for _, para := range cell.Paragraphs() {
					replaceInParagraph(para, values)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to write filled docx: %w", err)
	}
	return normalizeZipTimestamps(buf.Bytes())
}

// normalizeZipTimestamps rewrites the zip container with fixed entry
// timestamps. The docx writer stamps every entry with the current time,
// which would make two fills of identical inputs differ byte-wise.
func normalizeZipTimestamps(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to reopen filled docx: %w", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, entry := range zr.File {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   entry.Method,
			Modified: fixedFillTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to rewrite zip entry %s: %w", entry.Name, err)
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", entry.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to copy zip entry %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize filled docx: %w", err)
	}
	return out.Bytes(), nil
}

// replaceInParagraph substitutes placeholders at the paragraph level.
// Placeholders can be split across runs by the editor that authored the
// template, so the runs are joined before matching and the paragraph is
// rewritten as a single run when anything changed.
func replaceInParagraph(para document.Paragraph, values map[string]string) {
	runs := para.Runs()
	if len(runs) == 0 {
		return
	}

	var sb strings.Builder
	for _, run := range runs {
		sb.WriteString(run.Text())
	}
	original := sb.String()

	replaced := substitutePlaceholders(original, values)
	if replaced == original {
		return
	}

	runs[0].ClearContent()
	runs[0].AddText(replaced)
	for _, run := range runs[1:] {
		run.ClearContent()
	}
}

// substitutePlaceholders replaces every {{key}} occurrence that has a mapped
// value.
func substitutePlaceholders(text string, values map[string]string) string {
	for key, value := range values {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}

var _ Filler = (*PlaceholderTextFiller)(nil)
