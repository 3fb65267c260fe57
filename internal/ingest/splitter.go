package ingest

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"autofill/internal/models"
)

// Tokenizer encodes text to token ids and back. It exists so the splitter
// can be exercised without the real BPE vocabulary.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenTokenizer adapts the cl100k_base encoding to the Tokenizer
// interface.
type tiktokenTokenizer struct {
	tke *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.tke.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.tke.Decode(tokens)
}

// TokenSplitter splits segments into overlapping chunks of a fixed token
// budget. Source identity is preserved on every chunk.
type TokenSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    Tokenizer
}

// NewTokenSplitter creates a TokenSplitter backed by the cl100k_base
// encoding (the tokenizer used by the common embedding models).
func NewTokenSplitter(chunkSize, chunkOverlap int) (*TokenSplitter, error) {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return NewTokenSplitterWithTokenizer(chunkSize, chunkOverlap, &tiktokenTokenizer{tke: tke})
}

// NewTokenSplitterWithTokenizer creates a TokenSplitter with an explicit
// tokenizer.
func NewTokenSplitterWithTokenizer(chunkSize, chunkOverlap int, tokenizer Tokenizer) (*TokenSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return &TokenSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tokenizer,
	}, nil
}

// Split turns each input segment into chunks of at most ChunkSize tokens
// with ChunkOverlap tokens shared between neighbors.
func (s *TokenSplitter) Split(ctx context.Context, segments []models.Segment) ([]models.Segment, error) {
	var chunks []models.Segment

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tokens := s.tokenizer.Encode(seg.Text)
		step := s.ChunkSize - s.ChunkOverlap

		for start := 0; start < len(tokens); start += step {
			end := start + s.ChunkSize
			if end > len(tokens) {
				end = len(tokens)
			}

			chunks = append(chunks, models.Segment{
				Text:     s.tokenizer.Decode(tokens[start:end]),
				SourceID: seg.SourceID,
			})

			if end == len(tokens) {
				break
			}
		}
	}

	return chunks, nil
}
