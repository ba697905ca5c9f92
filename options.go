package vecgate

import (
	"context"

	dbCosmos "github.com/corvus-cloud/vecgate/internal/db/cosmos"
	dbPostgres "github.com/corvus-cloud/vecgate/internal/db/postgres"
)

// Embedder vectorizes text. Implementations must return vectors in input
// order from EmbedMany.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver    string
	document  dbCosmos.Config
	postgres  dbPostgres.Config
	embedder  Embedder
	batchSize int
}

// WithDocumentStore targets the document store backend. All four search
// modes are available.
func WithDocumentStore(cfg DocumentStoreConfig) Option {
	return func(c *clientConfig) {
		c.driver = "document"
		c.document = dbCosmos.Config{
			Endpoint:       cfg.Endpoint,
			Key:            cfg.Key,
			Database:       cfg.Database,
			Container:      cfg.Container,
			TextField:      cfg.TextField,
			EmbeddingField: cfg.EmbeddingField,
			MetadataKey:    cfg.MetadataKey,
		}
	}
}

// WithRelationalStore targets the relational backend. Only vector search is
// available: full-text modes return an error.
func WithRelationalStore(cfg RelationalStoreConfig) Option {
	return func(c *clientConfig) {
		c.driver = "relational"
		c.postgres = dbPostgres.Config{
			ConnString:      cfg.ConnString,
			Table:           cfg.Table,
			DistanceMetric:  cfg.DistanceMetric,
			EmbeddingLength: cfg.EmbeddingLength,
		}
	}
}

// DocumentStoreConfig holds document store connection settings. Field names
// default to "text", "embedding", and "metadata" when empty.
type DocumentStoreConfig struct {
	Endpoint       string
	Key            string
	Database       string
	Container      string
	TextField      string
	EmbeddingField string
	MetadataKey    string
}

// RelationalStoreConfig holds relational store connection settings.
// DistanceMetric is one of "cosine", "euclidean", "dot" (default cosine).
type RelationalStoreConfig struct {
	ConnString      string
	Table           string
	DistanceMetric  string
	EmbeddingLength int
}

// WithEmbedder sets the embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithBatchSize overrides the ingest batch size.
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}
