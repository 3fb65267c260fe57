package filler

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"autofill/internal/models"
)

// Filler populates a template document with resolved field values. One
// interface, two variants: form-widget formats and placeholder-text formats,
// dispatched by file extension.
type Filler interface {
	Fill(ctx context.Context, template []byte, values map[string]string) ([]byte, error)
}

// Fill dispatches on the template's extension and fills it with the given
// field results. Unknown extensions fail with UnsupportedFormatError.
func Fill(ctx context.Context, template []byte, filename string, results []models.FieldResult) ([]byte, error) {
	var f Filler
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		f = &FormWidgetFiller{}
	case ".docx":
		f = &PlaceholderTextFiller{}
	default:
		return nil, &models.UnsupportedFormatError{Filename: filename}
	}
	return f.Fill(ctx, template, BuildValueMap(results))
}

// BuildValueMap stringifies the resolved values, keyed by field key. Fields
// with nil values are skipped so their widgets and placeholders stay as-is.
func BuildValueMap(results []models.FieldResult) map[string]string {
	values := make(map[string]string, len(results))
	for _, r := range results {
		if r.Value == nil {
			continue
		}
		values[r.Key] = stringifyValue(r.Value)
	}
	return values
}

func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", v)
	}
}
