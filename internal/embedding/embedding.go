package embedding

import (
	"context"
	"fmt"

	"autofill/internal/config"
)

// Embedding is the capability contract for a text embedding model. The
// same model and dimension must be used for indexing and querying within
// one deployment.
type Embedding interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts, in
	// input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewModel creates an Embedding backed by the configured provider.
func NewModel(cfg config.EmbeddingConfig) (Embedding, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGoogleModel(cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
