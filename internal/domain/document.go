package domain

// Field keys shared between the query builder, the result mapper and the
// store adapters. The text/embedding keys name the stored document fields;
// the metadata key names the nested metadata object (document store) or the
// JSON column (relational store).
const (
	DefaultTextField      = "text"
	DefaultEmbeddingField = "embedding"
	DefaultMetadataKey    = "metadata"
)

// Record is a staged insert payload: one text paired with its embedding,
// metadata and assigned id.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}
