package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFieldName signals a filter field that fails the identifier grammar.
	ErrInvalidFieldName = errors.New("invalid field name")
	// ErrUnsupportedOperator signals an operator outside the fixed operator set.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrOperatorArity signals an operator supplied with the wrong number of values.
	ErrOperatorArity = errors.New("invalid operator arity")
	// ErrEmptyConjunction signals an $and/$or with no children.
	ErrEmptyConjunction = errors.New("empty conjunction")
	// ErrUnsupportedValueType signals a filter value of an unsupported type.
	ErrUnsupportedValueType = errors.New("unsupported value type")

	// ErrMissingRankFilter signals a ranking/hybrid search without rank filters.
	ErrMissingRankFilter = errors.New("rank filter is required")
	// ErrMissingEmbedding signals a vector/hybrid search without a query vector.
	ErrMissingEmbedding = errors.New("query embedding is required")
	// ErrInvalidLimit signals a non-positive result cap.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrInvalidRankTerm signals a rank-filter search term outside the safe literal grammar.
	ErrInvalidRankTerm = errors.New("invalid rank search term")

	// ErrFullTextNotSupported signals that the target dialect lacks full-text ranking.
	ErrFullTextNotSupported = errors.New("full-text search not supported by dialect")
	// ErrDimensionMismatch signals vectors of different lengths in the reranker.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyBatch signals an ingest call with no texts.
	ErrEmptyBatch = errors.New("texts cannot be empty")
	// ErrInvalidBatchSize signals an out-of-range ingest batch size.
	ErrInvalidBatchSize = errors.New("invalid batch size")
	// ErrNoIDs signals a document-store delete without explicit ids.
	ErrNoIDs = errors.New("no document ids provided")

	// ErrEmbeddingProviderError signals an upstream embedding API failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// StoreError wraps a backend execution failure with enough context to diagnose
// without leaking parameter values into logs.
type StoreError struct {
	Mode      string
	Container string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store execution failed (mode=%s, container=%s): %v", e.Mode, e.Container, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a store execution error.
func NewStoreError(mode, container string, err error) error {
	return &StoreError{Mode: mode, Container: container, Err: err}
}
