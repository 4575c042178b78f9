package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// It must be deterministic for identical input within one process lifetime
// and safe for concurrent use.
//
// Implementations include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI-compatible APIs (text-embedding-3-small)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the expected embedding vector size (e.g., 384, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup so an unreachable provider fails before serving.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
