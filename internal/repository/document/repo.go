package document

import (
	"context"
	"fmt"

	"github.com/corvus-cloud/vecgate/internal/db"
	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	"github.com/corvus-cloud/vecgate/internal/query"
)

// store is the consumer interface for document operations (ISP).
type store interface {
	Upsert(ctx context.Context, records []domain.Record) error
	Get(ctx context.Context, ids []string) ([]db.Row, error)
	Delete(ctx context.Context, ids []string) (int64, error)
}

// Repo implements usecase/ingest.Repository and the get/delete side of the
// document API.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes one batch of records.
func (r *Repo) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), err)
	}
	return nil
}

// Get fetches documents by identifier. Missing ids are silently absent from
// the result.
func (r *Repo) Get(ctx context.Context, ids []string) ([]result.Result, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.store.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get %d documents: %w", len(ids), err)
	}

	results := make([]result.Result, 0, len(rows))
	for _, row := range rows {
		id, _ := row[query.IDColumn].(string)
		if id == "" {
			continue
		}
		content, _ := row[query.TextAlias].(string)
		metadata, _ := row[query.MetadataAlias].(map[string]any)
		results = append(results, result.New(id, content, metadata, 0, nil))
	}
	return results, nil
}

// Delete removes documents by identifier and reports how many were removed.
// Semantics of a nil id list are store-specific: the relational store clears
// the table, the document store rejects it.
func (r *Repo) Delete(ctx context.Context, ids []string) (int64, error) {
	n, err := r.store.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}
	return n, nil
}
