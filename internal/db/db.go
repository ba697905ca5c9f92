package db

import (
	"context"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/query"
)

// Row is one raw result row/item keyed by projection alias.
type Row map[string]any

// Store is the executor boundary between the query core and a backend.
// Implementations live in db/cosmos (document dialect) and db/postgres
// (relational dialect); a single statement round-trip is atomic from the
// core's perspective.
type Store interface {
	Pinger
	// Query executes a compiled search statement and returns raw rows.
	Query(ctx context.Context, q *query.CompiledQuery) ([]Row, error)
	// Upsert stages and writes one batch of insert payloads.
	Upsert(ctx context.Context, records []domain.Record) error
	// Get fetches documents by id. Missing ids are omitted, not an error.
	Get(ctx context.Context, ids []string) ([]Row, error)
	// Delete removes documents by id and reports the affected count.
	// A nil id list deletes everything where the backend allows it.
	Delete(ctx context.Context, ids []string) (int64, error)
	// Dialect returns the statement renderer matching this backend.
	Dialect() query.Dialect
	Close()
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
