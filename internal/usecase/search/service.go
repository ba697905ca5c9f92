package search

import (
	"context"
	"fmt"
	"time"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	"github.com/corvus-cloud/vecgate/internal/metrics"
)

// Params carries one search call before validation. Filters use the
// operator-map form ({"field": {"$gte": 10}}); RankText feeds the full-text
// rank clause in ranking and hybrid modes.
type Params struct {
	Query         string
	Mode          mode.Mode
	K             int
	Filters       map[string]any
	Projections   []request.Projection
	RankFilters   []request.RankFilter
	Offset        int
	Limit         int
	HasPage       bool
	WithEmbedding bool
}

// Service handles similarity search across vector, full-text, and hybrid modes.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a search service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Search validates params, embeds the query when the mode calls for it, and
// executes against the store.
func (s *Service) Search(ctx context.Context, p Params) ([]result.Result, error) {
	start := time.Now()

	results, err := s.search(ctx, p, p.K, p.WithEmbedding)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(p.Mode), status).Inc()
	metrics.SearchRequestDuration.WithLabelValues(string(p.Mode)).Observe(time.Since(start).Seconds())

	return results, err
}

// SearchMMR over-fetches fetchK candidates with their embeddings, reranks
// them for diversity against the query vector, and returns the top k in
// selection order. Scores are preserved from the underlying search. Only
// modes that carry a query vector are accepted: reranking needs candidate
// embeddings, and the pure full-text modes never project them.
func (s *Service) SearchMMR(ctx context.Context, p Params, fetchK int, lambda float64) ([]result.Result, error) {
	if !p.Mode.NeedsEmbedding() {
		return nil, fmt.Errorf("%s search: diversity reranking: %w", p.Mode, domain.ErrMissingEmbedding)
	}
	if fetchK <= 0 {
		fetchK = DefaultFetchK
	}
	k := p.K
	if k <= 0 {
		k = request.DefaultK
	}
	if fetchK < k {
		fetchK = k
	}

	queryVec, err := s.queryVector(ctx, p)
	if err != nil {
		return nil, err
	}

	// Candidates need embeddings regardless of what the caller asked for.
	candidates, err := s.searchWithVector(ctx, p, queryVec, fetchK, true)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(candidates))
	for i := range candidates {
		vectors[i] = candidates[i].Vector()
	}

	selected, err := maximalMarginalRelevance(queryVec, vectors, lambda, k)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	out := make([]result.Result, 0, len(selected))
	for _, idx := range selected {
		r := candidates[idx]
		if !p.WithEmbedding {
			r = result.New(r.ID(), r.Content(), r.Metadata(), r.Score(), nil)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) search(ctx context.Context, p Params, k int, withEmbedding bool) ([]result.Result, error) {
	var queryVec []float32
	if p.Mode.NeedsEmbedding() {
		vec, err := s.queryVector(ctx, p)
		if err != nil {
			return nil, err
		}
		queryVec = vec
	}
	return s.searchWithVector(ctx, p, queryVec, k, withEmbedding)
}

func (s *Service) searchWithVector(
	ctx context.Context, p Params, queryVec []float32, k int, withEmbedding bool,
) ([]result.Result, error) {
	if p.Mode.UsesFullText() && !s.repo.SupportsFullText() {
		return nil, fmt.Errorf("%s search: %w", p.Mode, domain.ErrFullTextNotSupported)
	}

	filters, err := filter.Parse(p.Filters)
	if err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}

	if k <= 0 {
		k = request.DefaultK
	}

	req, err := request.New(p.Mode, k, filters, p.Projections, p.RankFilters, queryVec, withEmbedding)
	if err != nil {
		return nil, err
	}
	if p.HasPage {
		req, err = req.WithPage(p.Offset, p.Limit)
		if err != nil {
			return nil, err
		}
	}

	results, err := s.repo.Search(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.Mode, err)
	}
	return results, nil
}

func (s *Service) queryVector(ctx context.Context, p Params) ([]float32, error) {
	vec, err := s.embed.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	return vec, nil
}
