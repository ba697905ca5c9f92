package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Vector ranks by ascending vector distance to the query embedding.
	Vector Mode = "vector"
	// FullTextSearch filters on full-text predicates without ranking.
	FullTextSearch Mode = "full_text_search"
	// FullTextRanking orders by rank-fused full-text relevance scores.
	FullTextRanking Mode = "full_text_ranking"
	// Hybrid fuses full-text relevance with vector distance.
	Hybrid Mode = "hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vector || m == FullTextSearch || m == FullTextRanking || m == Hybrid
}

// NeedsEmbedding reports whether the mode requires a query embedding.
func (m Mode) NeedsEmbedding() bool {
	return m == Vector || m == Hybrid
}

// NeedsRankFilter reports whether the mode requires full-text rank filters.
func (m Mode) NeedsRankFilter() bool {
	return m == FullTextRanking || m == Hybrid
}

// UsesFullText reports whether the mode touches the full-text surface at all.
func (m Mode) UsesFullText() bool {
	return m == FullTextSearch || m == FullTextRanking || m == Hybrid
}
