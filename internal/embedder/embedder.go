package embedder

import "context"

// Embedder converts text into vector embeddings for semantic retrieval.
type Embedder interface {
	// Name returns the embedder name
	Name() string

	// Embed returns the embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size
	Dimensions() int
}
