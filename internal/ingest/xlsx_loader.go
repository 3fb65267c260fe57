package ingest

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"autofill/internal/models"
)

// XlsxLoader reads Excel (.xlsx) files, converting each sheet to a
// Markdown table so the model sees the row/column structure.
type XlsxLoader struct{}

// NewXlsxLoader creates a new XlsxLoader.
func NewXlsxLoader() *XlsxLoader {
	return &XlsxLoader{}
}

// Load returns one segment per non-empty sheet.
func (l *XlsxLoader) Load(ctx context.Context, data []byte, filename string) ([]models.Segment, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments []models.Segment
	for _, sheetName := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) == 0 {
			continue
		}

		var md strings.Builder
		md.WriteString("Sheet: " + sheetName + "\n")
		md.WriteString("| " + strings.Join(rows[0], " | ") + " |\n")
		md.WriteString("|" + strings.Repeat(" --- |", len(rows[0])) + "\n")
		for _, row := range rows[1:] {
			md.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}

		segments = append(segments, models.Segment{
			Text:     md.String(),
			SourceID: filename,
		})
	}

	return segments, nil
}

var _ Loader = (*XlsxLoader)(nil)
