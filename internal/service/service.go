package service

import (
	"context"

	"autofill/internal/artifact"
	"autofill/internal/extraction"
	"autofill/internal/filler"
	"autofill/internal/formschema"
	"autofill/internal/ingest"
	"autofill/internal/knowledge"
	"autofill/internal/models"
	"autofill/internal/policy"
	"autofill/internal/session"
	"autofill/pkg/logger"
)

// KnowledgeStore is the full knowledge-layer contract the service drives:
// the policy's read side plus the write and lifecycle operations.
type KnowledgeStore interface {
	policy.KnowledgeStore
	Index(ctx context.Context, sessionID string, segments []models.Segment) error
	Drop(ctx context.Context, sessionID string) error
}

// SessionRegistry tracks session liveness.
type SessionRegistry interface {
	Touch(ctx context.Context, sessionID string) error
	Reset(ctx context.Context, sessionID string) error
}

// Service is the upstream-facing facade the HTTP layer calls. Every method
// returns a plain result or a typed error, never a raw error from an
// external library.
type Service struct {
	ingestor  *ingest.Ingestor
	store     KnowledgeStore
	registry  SessionRegistry
	archive   *artifact.Archive
	policy    *policy.Policy
	inference *formschema.Inferencer
	log       *logger.Logger
}

// New wires the facade from its collaborators. archive may be nil when
// archiving is disabled.
func New(
	ingestor *ingest.Ingestor,
	store KnowledgeStore,
	registry SessionRegistry,
	archive *artifact.Archive,
	p *policy.Policy,
	inference *formschema.Inferencer,
) *Service {
	return &Service{
		ingestor:  ingestor,
		store:     store,
		registry:  registry,
		archive:   archive,
		policy:    p,
		inference: inference,
		log:       logger.New("service", ""),
	}
}

// IngestResult reports one completed upload.
type IngestResult struct {
	IndexedCount int    `json:"indexed_count"`
	ArchiveKey   string `json:"archive_key,omitempty"`
}

// IngestAndIndex parses the upload and appends its segments to the session's
// collection. Repeated uploads accumulate; nothing is deduplicated.
func (s *Service) IngestAndIndex(ctx context.Context, sessionID, filename string, data []byte) (*IngestResult, error) {
	if err := s.registry.Touch(ctx, sessionID); err != nil {
		s.log.WithSession(sessionID).WithError(err).Warn("session registry unavailable")
	}

	segments, err := s.ingestor.Ingest(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	if len(segments) > 0 {
		if err := s.store.Index(ctx, sessionID, segments); err != nil {
			return nil, &models.RetrievalError{Stage: "index", Err: err}
		}
	}

	key, err := s.archive.Store(ctx, sessionID, filename, data)
	if err != nil {
		// Archiving is best effort; the document is already indexed.
		s.log.WithSession(sessionID).WithError(err).Warn("failed to archive upload")
		key = ""
	}

	return &IngestResult{IndexedCount: len(segments), ArchiveKey: key}, nil
}

// Answer resolves a free-form question for the session.
func (s *Service) Answer(ctx context.Context, sessionID, question string, mode models.AnswerMode) models.RetrievalAnswer {
	if err := s.registry.Touch(ctx, sessionID); err != nil {
		s.log.WithSession(sessionID).WithError(err).Warn("session registry unavailable")
	}
	return s.policy.Answer(ctx, question, sessionID, mode)
}

// Extract resolves a batch of field specifications for the session.
func (s *Service) Extract(ctx context.Context, sessionID string, specs []models.FieldSpec, mode models.AnswerMode) []models.FieldResult {
	if err := s.registry.Touch(ctx, sessionID); err != nil {
		s.log.WithSession(sessionID).WithError(err).Warn("session registry unavailable")
	}
	return extraction.New(s.policy, mode).Extract(ctx, sessionID, specs)
}

// InferSchema proposes field specifications for a blank form.
func (s *Service) InferSchema(ctx context.Context, data []byte, filename string) ([]models.FieldSpec, error) {
	return s.inference.Infer(ctx, data, filename)
}

// Fill populates a template with resolved field values and archives the
// output when archiving is enabled.
func (s *Service) Fill(ctx context.Context, sessionID, filename string, template []byte, results []models.FieldResult) ([]byte, error) {
	out, err := filler.Fill(ctx, template, filename, results)
	if err != nil {
		return nil, err
	}

	if _, err := s.archive.Store(ctx, sessionID, "filled_"+filename, out); err != nil {
		s.log.WithSession(sessionID).WithError(err).Warn("failed to archive filled document")
	}
	return out, nil
}

// ResetSession drops the session's knowledge collection and registry entry.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if err := s.store.Drop(ctx, sessionID); err != nil {
		return &models.RetrievalError{Stage: "reset", Err: err}
	}
	if err := s.registry.Reset(ctx, sessionID); err != nil {
		s.log.WithSession(sessionID).WithError(err).Warn("failed to clear session registry entry")
	}
	return nil
}

var _ KnowledgeStore = (*knowledge.Store)(nil)
var _ SessionRegistry = (*session.Registry)(nil)
