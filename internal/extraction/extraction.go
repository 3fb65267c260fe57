package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"autofill/internal/models"
	"autofill/internal/policy"
	"autofill/pkg/logger"
)

// AnswerPolicy is the slice of the retrieval policy the loop drives.
type AnswerPolicy interface {
	Answer(ctx context.Context, question, sessionID string, mode models.AnswerMode) models.RetrievalAnswer
}

// numberPattern matches the first signed decimal in a raw answer, after
// comma thousands-separators have been stripped.
var numberPattern = regexp.MustCompile(`-?\d*\.?\d+`)

// Extractor resolves a batch of field specifications by asking the retrieval
// policy one composed question per field and normalizing the raw answers.
type Extractor struct {
	policy AnswerPolicy
	mode   models.AnswerMode
	log    *logger.Logger
}

// New creates an Extractor that answers fields in the given mode.
func New(p AnswerPolicy, mode models.AnswerMode) *Extractor {
	return &Extractor{
		policy: p,
		mode:   mode,
		log:    logger.New("extraction", ""),
	}
}

// Extract resolves every field spec, in order. Fields are independent: one
// field's failure is recorded as a None-confidence result and the loop
// continues.
func (e *Extractor) Extract(ctx context.Context, sessionID string, specs []models.FieldSpec) []models.FieldResult {
	log := e.log.WithSession(sessionID)

	results := make([]models.FieldResult, 0, len(specs))
	for _, spec := range specs {
		result := e.extractField(ctx, sessionID, spec)
		if result.Confidence == models.ConfidenceNone {
			log.WithPayload(map[string]interface{}{"key": spec.Key}).
				Warn("field extraction failed")
		}
		results = append(results, result)
	}
	return results
}

func (e *Extractor) extractField(ctx context.Context, sessionID string, spec models.FieldSpec) models.FieldResult {
	question := composeQuestion(spec)
	ans := e.policy.Answer(ctx, question, sessionID, e.mode)
	if ans.Degraded {
		return noneResult(spec.Key)
	}

	answer := strings.TrimSpace(ans.Answer)
	webUsed := containsSource(ans.SourceDocuments, models.SourceInternetSearch)

	if isUnanswered(answer) {
		source := models.SourceNone
		if webUsed {
			source = models.SourceInternetSearch
		}
		return models.FieldResult{
			Key:        spec.Key,
			Value:      nil,
			Source:     source,
			Confidence: models.ConfidenceLow,
		}
	}

	value, err := convertValue(answer, spec.DataType.Normalize())
	if err != nil {
		e.log.WithSession(sessionID).
			WithError(&models.ExtractionFieldError{Key: spec.Key, Err: err}).
			Warn("answer did not normalize to the declared type")
		return noneResult(spec.Key)
	}

	source, confidence := provenance(ans.SourceDocuments, webUsed)
	return models.FieldResult{
		Key:        spec.Key,
		Value:      value,
		Source:     source,
		Confidence: confidence,
	}
}

// composeQuestion builds the per-field prompt from the description, the
// type-specific format rule, and the sentinel rule.
func composeQuestion(spec models.FieldSpec) string {
	var format string
	switch spec.DataType.Normalize() {
	case models.TypeNumber:
		format = "Answer with digits only, no symbols or separators."
	case models.TypeDate:
		format = "Answer with an ISO 8601 date only."
	case models.TypeBoolean:
		format = "Answer with the literal word True or False only."
	default:
		format = "Answer with the exact value only, no full sentences."
	}

	return fmt.Sprintf("%s\n%s\nIf the information is not available, reply with exactly %s.\nNever explain or hedge.",
		spec.Description, format, policy.MissingMarker)
}

// convertValue coerces the raw answer into the declared scalar type.
func convertValue(answer string, dataType models.DataType) (interface{}, error) {
	switch dataType {
	case models.TypeNumber:
		repaired := repairNumber(answer)
		if repaired == "" {
			return nil, fmt.Errorf("no numeric value in %q", answer)
		}
		n, err := strconv.ParseFloat(repaired, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", repaired, err)
		}
		return n, nil

	case models.TypeBoolean:
		trimmed := strings.TrimRight(answer, ".")
		if strings.EqualFold(trimmed, "true") {
			return true, nil
		}
		if strings.EqualFold(trimmed, "false") {
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean answer: %q", answer)

	default:
		return answer, nil
	}
}

// repairNumber extracts the first signed decimal from a raw answer. Comma
// thousands-separators are treated as noise. Best-effort repair for
// generators that ignore formatting instructions.
func repairNumber(answer string) string {
	return numberPattern.FindString(strings.ReplaceAll(answer, ",", ""))
}

// provenance maps the answer's sources to the result's citation and grade.
func provenance(sources []string, webUsed bool) (string, models.Confidence) {
	if webUsed {
		return models.SourceInternetSearch, models.ConfidenceMedium
	}
	if len(sources) > 0 {
		return strings.Join(sources, ", "), models.ConfidenceHigh
	}
	return models.SourceNone, models.ConfidenceLow
}

// isUnanswered reports whether the answer is a sentinel rather than a value.
// Generators sometimes restyle the unavailable sentinel ("N/A.", "n/a"), so
// it is matched case-insensitively with trailing periods stripped.
func isUnanswered(answer string) bool {
	return answer == "" ||
		strings.Contains(answer, policy.MissingMarker) ||
		strings.EqualFold(strings.TrimRight(answer, "."), policy.UnavailableMarker)
}

func noneResult(key string) models.FieldResult {
	return models.FieldResult{
		Key:        key,
		Value:      nil,
		Source:     models.SourceNone,
		Confidence: models.ConfidenceNone,
	}
}

func containsSource(sources []string, want string) bool {
	for _, s := range sources {
		if s == want {
			return true
		}
	}
	return false
}
