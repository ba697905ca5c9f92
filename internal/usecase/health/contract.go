package health

import (
	"context"

	"github.com/corvus-cloud/vecgate/internal/query"
)

// Store checks backing store availability and identifies its dialect.
type Store interface {
	Ping(ctx context.Context) error
	Dialect() query.Dialect
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
