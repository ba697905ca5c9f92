package vecgate

import (
	"context"
	"fmt"

	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	searchuc "github.com/corvus-cloud/vecgate/internal/usecase/search"
)

// SearchMode selects the search strategy.
type SearchMode string

// Search modes.
const (
	ModeVector          SearchMode = SearchMode(mode.Vector)
	ModeFullTextSearch  SearchMode = SearchMode(mode.FullTextSearch)
	ModeFullTextRanking SearchMode = SearchMode(mode.FullTextRanking)
	ModeHybrid          SearchMode = SearchMode(mode.Hybrid)
)

// RankFilter pairs a full-text field with its search text. Required for
// ranking and hybrid modes.
type RankFilter struct {
	SearchField string
	SearchText  string
}

// Projection maps a stored metadata field to a result alias.
type Projection struct {
	Field string
	Alias string
}

// SearchOptions configures a search query.
type SearchOptions struct {
	Mode          SearchMode
	K             int
	Filters       map[string]any
	Projections   []Projection
	RankFilters   []RankFilter
	Offset        int
	Limit         int
	HasPage       bool
	WithEmbedding bool
}

// SearchResult is one hit.
type SearchResult struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Score     float64
	Embedding []float32
}

// Search executes a search. Vector and hybrid modes embed the query text;
// full-text modes use the rank filters.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) ([]SearchResult, error) {
	results, err := c.searchSvc.Search(ctx, paramsFromOptions(query, opts))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return fromSearchResults(results), nil
}

// SearchMMR executes a vector search over-fetching fetchK candidates, then
// reranks them for diversity. lambda in (0, 1] balances relevance against
// diversity; 0 falls back to the default.
func (c *Client) SearchMMR(
	ctx context.Context, query string, fetchK int, lambda float64, opts *SearchOptions,
) ([]SearchResult, error) {
	if lambda <= 0 {
		lambda = searchuc.DefaultLambda
	}
	results, err := c.searchSvc.SearchMMR(ctx, paramsFromOptions(query, opts), fetchK, lambda)
	if err != nil {
		return nil, fmt.Errorf("search mmr: %w", err)
	}
	return fromSearchResults(results), nil
}

func paramsFromOptions(query string, opts *SearchOptions) searchuc.Params {
	if opts == nil {
		opts = &SearchOptions{}
	}
	m := mode.Mode(opts.Mode)
	if m == "" {
		m = mode.Vector
	}

	p := searchuc.Params{
		Query:         query,
		Mode:          m,
		K:             opts.K,
		Filters:       opts.Filters,
		Offset:        opts.Offset,
		Limit:         opts.Limit,
		HasPage:       opts.HasPage,
		WithEmbedding: opts.WithEmbedding,
	}
	for _, pr := range opts.Projections {
		p.Projections = append(p.Projections, request.Projection{Field: pr.Field, Alias: pr.Alias})
	}
	for _, rf := range opts.RankFilters {
		p.RankFilters = append(p.RankFilters, request.RankFilter{SearchField: rf.SearchField, SearchText: rf.SearchText})
	}
	return p
}

func fromSearchResults(results []result.Result) []SearchResult {
	out := make([]SearchResult, len(results))
	for i := range results {
		out[i] = SearchResult{
			ID:        results[i].ID(),
			Content:   results[i].Content(),
			Metadata:  results[i].Metadata(),
			Score:     results[i].Score(),
			Embedding: results[i].Vector(),
		}
	}
	return out
}
