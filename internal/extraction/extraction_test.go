package extraction

import (
	"context"
	"strings"
	"testing"

	"autofill/internal/models"
	"autofill/internal/policy"
)

// scriptedPolicy answers by field key, keyed on the first line of the
// composed question (the field description).
type scriptedPolicy struct {
	answers map[string]models.RetrievalAnswer
}

func (s *scriptedPolicy) Answer(ctx context.Context, question, sessionID string, mode models.AnswerMode) models.RetrievalAnswer {
	for desc, ans := range s.answers {
		if strings.HasPrefix(question, desc) {
			return ans
		}
	}
	return models.RetrievalAnswer{Answer: policy.MissingMarker}
}

func TestNumberRepair(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"$1,234.50 USD", 1234.50},
		{"500000", 500000},
		{"approximately -42 units", -42},
		{"0.75", 0.75},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := convertValue(tc.raw, models.TypeNumber)
			if err != nil {
				t.Fatalf("convertValue(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("convertValue(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestRepairNumberString(t *testing.T) {
	if got := repairNumber("$1,234.50 USD"); got != "1234.50" {
		t.Errorf("repairNumber = %q, want 1234.50", got)
	}
}

func TestBooleanConversion(t *testing.T) {
	if got, err := convertValue("True.", models.TypeBoolean); err != nil || got != true {
		t.Errorf("convertValue(True.) = %v, %v", got, err)
	}
	if got, err := convertValue("false", models.TypeBoolean); err != nil || got != false {
		t.Errorf("convertValue(false) = %v, %v", got, err)
	}
	if _, err := convertValue("maybe", models.TypeBoolean); err == nil {
		t.Error("expected error for non-boolean answer")
	}
}

func TestExtractDocumentGroundedIsHigh(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"What is the revenue?": {Answer: "2000000", SourceDocuments: []string{"report.pdf"}},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "revenue", Description: "What is the revenue?", DataType: models.TypeNumber},
	})

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Value != float64(2000000) {
		t.Errorf("value = %v, want 2000000", r.Value)
	}
	if r.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s, want High", r.Confidence)
	}
	if r.Source != "report.pdf" {
		t.Errorf("source = %q, want report.pdf", r.Source)
	}
}

func TestExtractWebAnswerIsMedium(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"Who is the CEO?": {Answer: "Jane Doe", SourceDocuments: []string{models.SourceInternetSearch}},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "ceo_name", Description: "Who is the CEO?", DataType: models.TypeString},
	})

	r := results[0]
	if v, ok := r.Value.(string); !ok || !strings.Contains(v, "Jane Doe") {
		t.Errorf("value = %v, want to contain Jane Doe", r.Value)
	}
	if r.Confidence != models.ConfidenceMedium {
		t.Errorf("confidence = %s, want Medium", r.Confidence)
	}
	if r.Source != models.SourceInternetSearch {
		t.Errorf("source = %q, want %q", r.Source, models.SourceInternetSearch)
	}
}

func TestExtractPureKnowledgeNeverHigh(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"Capital of France?": {Answer: "Paris"},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "capital", Description: "Capital of France?", DataType: models.TypeString},
	})

	r := results[0]
	if r.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %s, want Low", r.Confidence)
	}
	if r.Source != models.SourceNone {
		t.Errorf("source = %q, want %q", r.Source, models.SourceNone)
	}
}

func TestExtractFieldsAreIndependentAndOrdered(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"Field A": {Answer: "not a number at all", SourceDocuments: []string{"doc.pdf"}},
		"Field B": {Answer: "hello", SourceDocuments: []string{"doc.pdf"}},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "a", Description: "Field A", DataType: models.TypeNumber},
		{Key: "b", Description: "Field B", DataType: models.TypeString},
	})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Key != "a" || results[1].Key != "b" {
		t.Errorf("result order = %s,%s, want a,b", results[0].Key, results[1].Key)
	}
	if results[0].Confidence != models.ConfidenceNone || results[0].Value != nil {
		t.Errorf("unparseable field should be None with nil value, got %+v", results[0])
	}
	if results[1].Confidence != models.ConfidenceHigh {
		t.Errorf("second field should still succeed, got %+v", results[1])
	}
}

func TestExtractSentinelYieldsNilValue(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"Unknowable": {Answer: policy.UnavailableMarker, SourceDocuments: []string{models.SourceInternetSearch}},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "x", Description: "Unknowable", DataType: models.TypeString},
	})

	r := results[0]
	if r.Value != nil {
		t.Errorf("value = %v, want nil", r.Value)
	}
	if r.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %s, want Low", r.Confidence)
	}
	if r.Source != models.SourceInternetSearch {
		t.Errorf("source = %q, want %q", r.Source, models.SourceInternetSearch)
	}
}

func TestExtractRestyledSentinelYieldsNilValue(t *testing.T) {
	for _, raw := range []string{policy.UnavailableMarker + ".", "n/a", "N/A."} {
		t.Run(raw, func(t *testing.T) {
			p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
				"Unknowable": {Answer: raw, SourceDocuments: []string{models.SourceInternetSearch}},
			}}
			e := New(p, models.ModeDirect)

			results := e.Extract(context.Background(), "s1", []models.FieldSpec{
				{Key: "x", Description: "Unknowable", DataType: models.TypeString},
			})

			r := results[0]
			if r.Value != nil {
				t.Errorf("value = %v, want nil", r.Value)
			}
			if r.Confidence != models.ConfidenceLow {
				t.Errorf("confidence = %s, want Low", r.Confidence)
			}
			if r.Source != models.SourceInternetSearch {
				t.Errorf("source = %q, want %q", r.Source, models.SourceInternetSearch)
			}
		})
	}
}

func TestExtractDegradedYieldsNone(t *testing.T) {
	p := &scriptedPolicy{answers: map[string]models.RetrievalAnswer{
		"Broken": {Answer: "unable to answer: backend down", Degraded: true},
	}}
	e := New(p, models.ModeDirect)

	results := e.Extract(context.Background(), "s1", []models.FieldSpec{
		{Key: "x", Description: "Broken", DataType: models.TypeString},
	})

	r := results[0]
	if r.Confidence != models.ConfidenceNone || r.Value != nil || r.Source != models.SourceNone {
		t.Errorf("degraded field result = %+v, want None/nil/None", r)
	}
}

func TestComposeQuestionIncludesRules(t *testing.T) {
	q := composeQuestion(models.FieldSpec{
		Key:         "amount",
		Description: "What is the loan amount?",
		DataType:    models.TypeNumber,
	})
	if !strings.Contains(q, "digits only") {
		t.Errorf("number question missing format rule: %q", q)
	}
	if !strings.Contains(q, policy.MissingMarker) {
		t.Errorf("question missing sentinel rule: %q", q)
	}
}
