package vecgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvus-cloud/vecgate/internal/db"
	dbCosmos "github.com/corvus-cloud/vecgate/internal/db/cosmos"
	dbPostgres "github.com/corvus-cloud/vecgate/internal/db/postgres"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	documentrepo "github.com/corvus-cloud/vecgate/internal/repository/document"
	searchrepo "github.com/corvus-cloud/vecgate/internal/repository/search"
	ingestuc "github.com/corvus-cloud/vecgate/internal/usecase/ingest"
	searchuc "github.com/corvus-cloud/vecgate/internal/usecase/search"
)

// Client is the vecgate SDK entry point.
type Client struct {
	store     db.Store
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
}

// New creates a vecgate Client and connects to the configured store.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("vecgate: embedder required (use WithEmbedder)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("vecgate: store not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "document":
		s, err := dbCosmos.NewStore(ctx, cfg.document)
		if err != nil {
			return nil, fmt.Errorf("vecgate: create document store: %w", err)
		}
		return s, nil
	case "relational":
		s, err := dbPostgres.NewStore(ctx, cfg.postgres)
		if err != nil {
			return nil, fmt.Errorf("vecgate: create relational store: %w", err)
		}
		return s, nil
	case "":
		return nil, errors.New("vecgate: store required (use WithDocumentStore or WithRelationalStore)")
	default:
		return nil, fmt.Errorf("vecgate: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	searchRepo := searchrepo.New(store)
	docRepo := documentrepo.New(store)

	emb := &embedderAdapter{inner: cfg.embedder}

	searchSvc := searchuc.New(searchRepo, emb)
	ingestSvc := ingestuc.New(docRepo, emb)
	if cfg.batchSize > 0 {
		if _, err := ingestSvc.WithBatchSize(cfg.batchSize); err != nil {
			store.Close()
			return nil, fmt.Errorf("vecgate: %w", err)
		}
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		ingestSvc: ingestSvc,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// AddTexts embeds and stores texts in batches, returning the assigned ids in
// input order. metadatas and ids are optional; when present they must match
// len(texts).
func (c *Client) AddTexts(
	ctx context.Context, texts []string, metadatas []map[string]any, ids []string,
) ([]string, error) {
	out, err := c.ingestSvc.Ingest(ctx, texts, metadatas, ids)
	if err != nil {
		return nil, fmt.Errorf("add texts: %w", err)
	}
	return out, nil
}

// GetByIDs fetches documents by id. Unknown ids are silently absent from the
// result.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]result.Result, error) {
	out, err := c.ingestSvc.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get by ids: %w", err)
	}
	return out, nil
}

// Delete removes documents by id. Passing nil defers to the store's
// delete-all or reject semantics.
func (c *Client) Delete(ctx context.Context, ids []string) (int64, error) {
	n, err := c.ingestSvc.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return n, nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := a.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return v, nil
}

func (a *embedderAdapter) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	v, err := a.inner.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed many: %w", err)
	}
	return v, nil
}
