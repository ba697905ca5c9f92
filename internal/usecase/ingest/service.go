package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	"github.com/corvus-cloud/vecgate/internal/metrics"
)

// Batch size limits. MaxBatchSize tracks the document store's bulk request
// item cap.
const (
	DefaultBatchSize = 100
	MaxBatchSize     = 419
)

// Service turns raw texts into embedded records and writes them in
// sequential batches. A failed batch aborts the run; earlier batches stay
// written.
type Service struct {
	repo      Repository
	embed     Embedder
	batchSize int
}

// New creates an ingest service with the default batch size.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed, batchSize: DefaultBatchSize}
}

// WithBatchSize overrides the batch size, capped at MaxBatchSize.
func (s *Service) WithBatchSize(size int) (*Service, error) {
	if size <= 0 || size > MaxBatchSize {
		return nil, fmt.Errorf("%w: must be in [1, %d], got %d", domain.ErrInvalidBatchSize, MaxBatchSize, size)
	}
	s.batchSize = size
	return s, nil
}

// Ingest embeds and stores texts, returning the assigned ids in input order.
// Ids resolve per document: caller-supplied, then metadata "id", then a
// fresh UUID. metadatas and ids must be empty or match len(texts).
func (s *Service) Ingest(
	ctx context.Context, texts []string, metadatas []map[string]any, ids []string,
) ([]string, error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(metadatas) != 0 && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("%w: %d metadatas for %d texts", domain.ErrInvalidBatchSize, len(metadatas), len(texts))
	}
	if len(ids) != 0 && len(ids) != len(texts) {
		return nil, fmt.Errorf("%w: %d ids for %d texts", domain.ErrInvalidBatchSize, len(ids), len(texts))
	}

	assigned := assignIDs(texts, metadatas, ids)

	for start := 0; start < len(texts); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ingest aborted after %d documents: %w", start, err)
		}

		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := s.ingestBatch(ctx, texts[start:end], metadatas, assigned, start); err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues("error").Add(float64(end - start))
			return nil, fmt.Errorf("batch at offset %d: %w", start, err)
		}
		metrics.IngestDocumentsTotal.WithLabelValues("ok").Add(float64(end - start))
	}

	return assigned, nil
}

// ingestBatch embeds one batch in a single call and upserts the records.
func (s *Service) ingestBatch(
	ctx context.Context, batch []string, metadatas []map[string]any, assigned []string, offset int,
) error {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	vectors, err := s.embed.EmbedMany(ctx, batch)
	if err != nil {
		return fmt.Errorf("vectorize: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("vectorize: got %d vectors for %d texts", len(vectors), len(batch))
	}

	records := make([]domain.Record, len(batch))
	for i, text := range batch {
		var meta map[string]any
		if len(metadatas) != 0 {
			meta = metadatas[offset+i]
		}
		records[i] = domain.Record{
			ID:        assigned[offset+i],
			Content:   text,
			Metadata:  meta,
			Embedding: vectors[i],
		}
	}

	if err := s.repo.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Get fetches documents by id. Unknown ids are silently absent from the
// result.
func (s *Service) Get(ctx context.Context, ids []string) ([]result.Result, error) {
	if len(ids) == 0 {
		return nil, domain.ErrNoIDs
	}
	out, err := s.repo.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return out, nil
}

// Delete removes documents by id. A nil list defers to the store's
// delete-all or reject semantics.
func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	n, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return n, nil
}

// assignIDs resolves one id per text: caller list first, then the metadata
// "id" key, then a generated UUID.
func assignIDs(texts []string, metadatas []map[string]any, ids []string) []string {
	assigned := make([]string, len(texts))
	for i := range texts {
		switch {
		case len(ids) != 0 && ids[i] != "":
			assigned[i] = ids[i]
		case len(metadatas) != 0 && metadatas[i] != nil:
			if id, ok := metadatas[i]["id"].(string); ok && id != "" {
				assigned[i] = id
				continue
			}
			assigned[i] = uuid.NewString()
		default:
			assigned[i] = uuid.NewString()
		}
	}
	return assigned
}
