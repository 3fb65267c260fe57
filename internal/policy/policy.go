package policy

import (
	"context"
	"fmt"
	"strings"

	"autofill/internal/llm"
	"autofill/internal/models"
	"autofill/internal/websearch"
	"autofill/pkg/logger"
)

const (
	// MissingMarker is the sentinel the generator emits verbatim when the
	// available context cannot answer the question. It drives fallback
	// detection and must never be paraphrased.
	MissingMarker = "MISSING"

	// UnavailableMarker is the sentinel for questions the web-search pass
	// could not answer either.
	UnavailableMarker = "N/A"

	// searchK is how many segments are retrieved as context per question.
	searchK = 3
)

const groundedInstruction = `You answer questions using the provided context.
Rules, in order of precedence:
1. The context is authoritative. Never contradict a number or fact that appears in it.
2. You may use general knowledge only for information the context does not cover, and you must say so explicitly when you do.
3. If neither the context nor general knowledge answers the question, reply with exactly ` + MissingMarker + ` and nothing else.`

const webInstruction = `You answer questions using only the search results provided.
Answer tersely with the value or fact asked for. Do not explain.
If the search results do not answer the question, reply with exactly ` + UnavailableMarker + ` and nothing else.`

const pureKnowledgeInstruction = `You answer questions from your general knowledge.
If you do not know the answer, reply with exactly ` + MissingMarker + ` and nothing else.`

const agenticInstruction = `You answer questions using the provided context when it speaks to the question.
The context is authoritative. Never contradict a number or fact that appears in it.
If the context does not answer the question, you may call the web_search tool before answering.
If nothing answers the question, reply with exactly ` + MissingMarker + ` and nothing else.`

// KnowledgeStore is the slice of the knowledge layer the policy reads from.
type KnowledgeStore interface {
	HasDocuments(ctx context.Context, sessionID string) (bool, error)
	Search(ctx context.Context, sessionID, query string, k int) ([]models.Segment, error)
}

// Policy decides, per question, whether indexed documents suffice or an
// external search is needed, and produces a grounded answer with sources.
type Policy struct {
	store    KnowledgeStore
	llm      llm.Client
	searcher websearch.Searcher
	log      *logger.Logger
}

// New creates a Policy over the given capabilities.
func New(store KnowledgeStore, client llm.Client, searcher websearch.Searcher) *Policy {
	return &Policy{
		store:    store,
		llm:      client,
		searcher: searcher,
		log:      logger.New("policy", ""),
	}
}

// Answer resolves the question for the session. It never returns an error:
// internal failures degrade to an answer describing the failure, flagged so
// callers can tell it apart from a genuine "not found".
func (p *Policy) Answer(ctx context.Context, question, sessionID string, mode models.AnswerMode) models.RetrievalAnswer {
	log := p.log.WithSession(sessionID)

	hasDocs, err := p.store.HasDocuments(ctx, sessionID)
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "probe", Err: err})
	}

	if mode == models.ModeAgentic {
		return p.answerAgentic(ctx, log, question, sessionID, hasDocs)
	}

	if !hasDocs {
		return p.answerPureKnowledge(ctx, log, question)
	}

	segments, err := p.store.Search(ctx, sessionID, question, searchK)
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "retrieve", Err: err})
	}
	sources := uniqueSources(segments)

	answer, err := p.llm.Generate(ctx, groundedInstruction, groundedPrompt(segments, question))
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "generate", Err: err})
	}

	if strings.Contains(answer, MissingMarker) || len(sources) == 0 {
		log.WithPayload(map[string]interface{}{"question": question}).
			Info("documents insufficient, falling back to web search")
		return p.answerFromWeb(ctx, log, question)
	}

	return models.RetrievalAnswer{Answer: answer, SourceDocuments: sources}
}

// answerPureKnowledge generates from the question alone. A sentinel answer
// still escalates to web search so empty sessions get a real attempt.
func (p *Policy) answerPureKnowledge(ctx context.Context, log *logger.Logger, question string) models.RetrievalAnswer {
	answer, err := p.llm.Generate(ctx, pureKnowledgeInstruction, question)
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "generate", Err: err})
	}
	if strings.Contains(answer, MissingMarker) {
		return p.answerFromWeb(ctx, log, question)
	}
	return models.RetrievalAnswer{Answer: answer}
}

// answerFromWeb runs the search capability and a second, terse generation
// pass over its results.
func (p *Policy) answerFromWeb(ctx context.Context, log *logger.Logger, question string) models.RetrievalAnswer {
	results, err := p.searcher.Search(ctx, question)
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "web_search", Err: err})
	}

	prompt := fmt.Sprintf("Search results:\n%s\n\nQuestion: %s", websearch.FormatResults(results), question)
	answer, err := p.llm.Generate(ctx, webInstruction, prompt)
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "generate", Err: err})
	}

	return models.RetrievalAnswer{
		Answer:          answer,
		SourceDocuments: []string{models.SourceInternetSearch},
	}
}

// answerAgentic hands the model the context and a callable search tool and
// lets it decide. Any observed tool call marks the sources accordingly.
func (p *Policy) answerAgentic(ctx context.Context, log *logger.Logger, question, sessionID string, hasDocs bool) models.RetrievalAnswer {
	var sources []string
	prompt := question
	if hasDocs {
		segments, err := p.store.Search(ctx, sessionID, question, searchK)
		if err != nil {
			return p.degrade(log, models.RetrievalError{Stage: "retrieve", Err: err})
		}
		sources = uniqueSources(segments)
		prompt = groundedPrompt(segments, question)
	}

	tool := llm.Tool{
		Name:        "web_search",
		Description: "Search the web for information not present in the context.",
		Parameters:  map[string]string{"query": "The search query."},
		Run: func(ctx context.Context, args map[string]string) (string, error) {
			results, err := p.searcher.Search(ctx, args["query"])
			if err != nil {
				return "", err
			}
			return websearch.FormatResults(results), nil
		},
	}

	answer, trace, err := p.llm.GenerateWithTools(ctx, agenticInstruction, prompt, []llm.Tool{tool})
	if err != nil {
		return p.degrade(log, models.RetrievalError{Stage: "generate", Err: err})
	}

	if len(trace) > 0 {
		sources = append(sources, models.SourceInternetSearch)
	}
	return models.RetrievalAnswer{Answer: answer, SourceDocuments: sources}
}

// degrade converts an internal failure into a well-formed answer.
func (p *Policy) degrade(log *logger.Logger, rerr models.RetrievalError) models.RetrievalAnswer {
	log.WithError(&rerr).Error("retrieval degraded")
	return models.RetrievalAnswer{
		Answer:   fmt.Sprintf("unable to answer: %v", rerr.Err),
		Degraded: true,
	}
}

// groundedPrompt assembles the context block and question.
func groundedPrompt(segments []models.Segment, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	if len(segments) == 0 {
		sb.WriteString("(no context available)\n")
	}
	for _, seg := range segments {
		sb.WriteString(seg.Text)
		sb.WriteString("\n---\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}

// uniqueSources collects source identifiers in first-seen order.
func uniqueSources(segments []models.Segment) []string {
	seen := make(map[string]struct{}, len(segments))
	var sources []string
	for _, seg := range segments {
		if seg.SourceID == "" {
			continue
		}
		if _, ok := seen[seg.SourceID]; ok {
			continue
		}
		seen[seg.SourceID] = struct{}{}
		sources = append(sources, seg.SourceID)
	}
	return sources
}
