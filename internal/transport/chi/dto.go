package chi

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query         string           `json:"query"`
	Mode          string           `json:"mode,omitempty"`
	K             int              `json:"k,omitempty"`
	Filters       map[string]any   `json:"filters,omitempty"`
	Projections   []ProjectionDTO  `json:"projections,omitempty"`
	RankFilters   []RankFilterDTO  `json:"rank_filters,omitempty"`
	Offset        *int             `json:"offset,omitempty"`
	Limit         *int             `json:"limit,omitempty"`
	WithEmbedding bool             `json:"with_embedding,omitempty"`
	MMR           *MMRParams       `json:"mmr,omitempty"`
}

// MMRParams enables diversity reranking on a search.
type MMRParams struct {
	FetchK int     `json:"fetch_k,omitempty"`
	Lambda float64 `json:"lambda,omitempty"`
}

// ProjectionDTO maps a stored field to a result alias.
type ProjectionDTO struct {
	Field string `json:"field"`
	Alias string `json:"alias"`
}

// RankFilterDTO pairs a full-text field with its search text.
type RankFilterDTO struct {
	SearchField string `json:"search_field"`
	SearchText  string `json:"search_text"`
}

// SearchResultItem is one hit in a search response.
type SearchResultItem struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// SearchResponse is the POST /search reply.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// IngestRequest is the POST /documents body.
type IngestRequest struct {
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas,omitempty"`
	IDs       []string         `json:"ids,omitempty"`
}

// IngestResponse is the POST /documents reply.
type IngestResponse struct {
	IDs []string `json:"ids"`
}

// DocumentsResponse is the GET /documents reply.
type DocumentsResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// DeleteRequest is the DELETE /documents body. A null id list defers to the
// store's delete-all or reject semantics.
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteResponse is the DELETE /documents reply.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// HealthResponse is the GET /health reply.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error response codes.
const (
	CodeBadRequest           = "bad_request"
	CodeValidationFailed     = "validation_failed"
	CodeFullTextNotSupported = "full_text_not_supported"
	CodeEmbeddingProvider    = "embedding_provider_error"
	CodeInternalError        = "internal_error"
)
