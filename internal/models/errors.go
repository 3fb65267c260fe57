package models

import "fmt"

// ParseError reports an input document that could not be read: the format
// is unsupported or the parser failed to extract text. It is fatal to the
// request that uploaded the document.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to parse %s", e.Filename)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaInferenceError reports model output that could not be parsed as a
// field specification list.
type SchemaInferenceError struct {
	Err error
}

func (e *SchemaInferenceError) Error() string {
	return fmt.Sprintf("failed to infer form schema: %v", e.Err)
}

func (e *SchemaInferenceError) Unwrap() error { return e.Err }

// RetrievalError reports an unreachable store or generation backend. The
// retrieval policy recovers it internally into a degraded answer; it never
// reaches the caller raw.
type RetrievalError struct {
	Stage string // "probe", "retrieve", "generate" or "web_search"
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ExtractionFieldError reports a failure localized to a single field. The
// extraction loop records it as a None-confidence result and continues.
type ExtractionFieldError struct {
	Key string
	Err error
}

func (e *ExtractionFieldError) Error() string {
	return fmt.Sprintf("extraction failed for field %q: %v", e.Key, e.Err)
}

func (e *ExtractionFieldError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a file extension the document filler does
// not know how to populate.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported template format: %s", e.Filename)
}
