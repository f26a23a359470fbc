package embedding

import "context"

// Embedding is the interface every embedding model client implements.
// The pipeline treats the model as an opaque text-to-vector function.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider identifies the model framework an embedding model belongs to.
type Provider string

const (
	Google Provider = "google"
	OpenAI Provider = "openai"
	Ollama Provider = "ollama"
)
