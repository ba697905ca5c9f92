package result

// Result is a single normalized search hit. The score meaning depends on
// the search mode: vector distance for vector/hybrid, rank score when the
// dialect returns one, 0.0 for unscored full-text search.
type Result struct {
	id       string
	content  string
	metadata map[string]any
	score    float64
	vector   []float32
}

// New creates a search result.
func New(id, content string, metadata map[string]any, score float64, vector []float32) Result {
	return Result{id: id, content: content, metadata: metadata, score: score, vector: vector}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Content returns the document text.
func (r *Result) Content() string { return r.content }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]any { return r.metadata }

// Score returns the mode-dependent score.
func (r *Result) Score() float64 { return r.score }

// Vector returns the echoed embedding (nil unless with_embedding was set).
func (r *Result) Vector() []float32 { return r.vector }
