package ingest

import (
	"context"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
)

// Repository defines the storage contract for document lifecycle operations.
type Repository interface {
	Upsert(ctx context.Context, records []domain.Record) error
	Get(ctx context.Context, ids []string) ([]result.Result, error)
	Delete(ctx context.Context, ids []string) (int64, error)
}

// Embedder vectorizes batches of text.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}
