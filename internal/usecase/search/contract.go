package search

import (
	"context"

	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
	SupportsFullText() bool
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
