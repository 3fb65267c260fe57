package models

// Segment is a unit of parsed document text with source attribution. It is
// the indexing granularity: the ingestor produces segments and the knowledge
// store owns them once indexed. SourceID must survive indexing so that
// answers can cite the document they came from.
type Segment struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
}

// DataType is the declared type of an extraction field.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
)

// Normalize maps unknown data types to TypeString.
func (t DataType) Normalize() DataType {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate:
		return t
	default:
		return TypeString
	}
}

// FieldSpec describes one form field to extract: a unique key, a natural
// language description of what the field asks for, and the expected type.
type FieldSpec struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	DataType    DataType `json:"data_type"`
}

// Confidence grades how trustworthy a field result is. The grade must
// reflect provenance truthfully: High only for answers grounded in indexed
// documents, Medium for anything that touched web search, Low for answers
// from general model knowledge, None for total failure.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
	ConfidenceNone   Confidence = "None"
)

// Source labels used in FieldResult when the answer did not come from an
// indexed document.
const (
	SourceInternetSearch = "Internet Search"
	SourceNone           = "None"
)

// FieldResult is the resolved value for one FieldSpec. Value is a typed
// scalar (string, float64 or bool) or nil when no answer was found.
type FieldResult struct {
	Key        string      `json:"key"`
	Value      interface{} `json:"value"`
	Source     string      `json:"source"`
	Confidence Confidence  `json:"confidence"`
}

// AnswerMode selects how the retrieval policy is allowed to reach for
// external information.
type AnswerMode string

const (
	// ModeDirect retrieves once, generates once, and falls back to a fixed
	// web search pass when the answer is missing.
	ModeDirect AnswerMode = "direct"
	// ModeAgentic hands the model a callable search tool and lets it decide
	// whether to invoke it, within a bounded call budget.
	ModeAgentic AnswerMode = "agentic"
)

// RetrievalAnswer is the transient result of one retrieval policy call.
type RetrievalAnswer struct {
	Answer string `json:"answer"`
	// SourceDocuments lists the source identifiers the answer is grounded
	// on, in retrieval order. Empty when the answer came from general model
	// knowledge; contains SourceInternetSearch when web search was used.
	SourceDocuments []string `json:"source_documents"`
	// Degraded is set when the policy recovered an internal failure into
	// this answer. The answer text then describes the error and callers
	// must not treat it as a grounded result.
	Degraded bool `json:"-"`
}
