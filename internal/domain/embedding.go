package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implemented by transport/openai; consumed by the search and ingest usecases.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}
