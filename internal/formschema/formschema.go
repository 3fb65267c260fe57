package formschema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"autofill/internal/llm"
	"autofill/internal/models"
	"autofill/pkg/logger"
)

const inferInstruction = `You identify the fillable fields of a blank form.
Given the form's text, enumerate every field a person would fill in.
Respond with JSON only, no prose, in exactly this shape:
{"fields": [{"key": "snake_case_identifier", "description": "what the field asks for, phrased as a question", "data_type": "string|number|boolean|date"}]}`

// TextExtractor is the slice of the ingestor used to read the blank form.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) (string, error)
}

// Inferencer proposes field specifications for a blank form by prompting the
// generation capability over the form's parsed text.
type Inferencer struct {
	extractor TextExtractor
	llm       llm.Client
	log       *logger.Logger
}

// New creates an Inferencer.
func New(extractor TextExtractor, client llm.Client) *Inferencer {
	return &Inferencer{
		extractor: extractor,
		llm:       client,
		log:       logger.New("formschema", ""),
	}
}

// Infer parses the form and returns its proposed field specifications. Keys
// are unique: duplicates from the model are dropped, first occurrence wins.
func (i *Inferencer) Infer(ctx context.Context, data []byte, filename string) ([]models.FieldSpec, error) {
	text, err := i.extractor.ExtractText(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Form text:\n%s", text)
	raw, err := i.llm.Generate(ctx, inferInstruction, prompt)
	if err != nil {
		return nil, &models.SchemaInferenceError{Err: err}
	}

	specs, err := parseFieldList(raw)
	if err != nil {
		return nil, &models.SchemaInferenceError{Err: err}
	}

	i.log.WithPayload(map[string]interface{}{
		"filename": filename,
		"fields":   len(specs),
	}).Info("inferred form schema")

	return specs, nil
}

// parseFieldList decodes the model's JSON output, tolerating markdown code
// fences around it.
func parseFieldList(raw string) ([]models.FieldSpec, error) {
	cleaned := stripCodeFence(raw)

	var payload struct {
		Fields []models.FieldSpec `json:"fields"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("output is not a field list: %w", err)
	}

	seen := make(map[string]struct{}, len(payload.Fields))
	specs := make([]models.FieldSpec, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		if f.Key == "" {
			continue
		}
		if _, ok := seen[f.Key]; ok {
			continue
		}
		seen[f.Key] = struct{}{}
		f.DataType = f.DataType.Normalize()
		specs = append(specs, f)
	}
	return specs, nil
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
