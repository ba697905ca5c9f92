package request

import (
	"fmt"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
)

// Search parameter limits.
const (
	DefaultK = 4
	MaxK     = 1000
)

// RankFilter pairs a full-text field with its search text. Required for
// ranking and hybrid modes; applied in list order to the rank-fusion clause.
type RankFilter struct {
	SearchField string
	SearchText  string
}

// Projection maps a stored field to a result alias. Projections are ordered
// so the rendered statement is deterministic.
type Projection struct {
	Field string
	Alias string
}

// Request is a validated search query (one search call).
type Request struct {
	searchMode    mode.Mode
	k             int
	offset        int
	limit         int
	hasPage       bool
	filters       filter.Node
	projections   []Projection
	rankFilters   []RankFilter
	vector        []float32
	withEmbedding bool
}

// New validates and creates a search request. The vector is required for
// vector/hybrid modes, rank filters for ranking/hybrid modes.
func New(
	m mode.Mode,
	k int,
	filters filter.Node,
	projections []Projection,
	rankFilters []RankFilter,
	vector []float32,
	withEmbedding bool,
) (Request, error) {
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if k <= 0 || k > MaxK {
		return Request{}, fmt.Errorf("%w: k must be in [1, %d], got %d", domain.ErrInvalidLimit, MaxK, k)
	}
	if m.NeedsEmbedding() && len(vector) == 0 {
		return Request{}, fmt.Errorf("%w for %s search", domain.ErrMissingEmbedding, m)
	}
	if m.NeedsRankFilter() {
		if len(rankFilters) == 0 {
			return Request{}, fmt.Errorf("%w for %s search", domain.ErrMissingRankFilter, m)
		}
		for _, rf := range rankFilters {
			if err := filter.ValidateIdentifier(rf.SearchField); err != nil {
				return Request{}, fmt.Errorf("rank filter: %w", err)
			}
			if err := ValidateRankText(rf.SearchText); err != nil {
				return Request{}, err
			}
		}
	}
	for _, p := range projections {
		if err := filter.ValidateIdentifier(p.Field); err != nil {
			return Request{}, fmt.Errorf("projection: %w", err)
		}
		if err := filter.ValidateIdentifier(p.Alias); err != nil {
			return Request{}, fmt.Errorf("projection alias: %w", err)
		}
	}

	return Request{
		searchMode:    m,
		k:             k,
		filters:       filters,
		projections:   projections,
		rankFilters:   rankFilters,
		vector:        vector,
		withEmbedding: withEmbedding,
	}, nil
}

// WithPage returns a copy with an explicit offset/limit override replacing
// the top-k cap.
func (r Request) WithPage(offset, limit int) (Request, error) {
	if offset < 0 || limit <= 0 {
		return Request{}, fmt.Errorf("%w: offset=%d limit=%d", domain.ErrInvalidLimit, offset, limit)
	}
	r.offset = offset
	r.limit = limit
	r.hasPage = true
	return r, nil
}

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// K returns the result cap.
func (r *Request) K() int { return r.k }

// Page returns the explicit offset/limit override, if any.
func (r *Request) Page() (offset, limit int, ok bool) {
	return r.offset, r.limit, r.hasPage
}

// Filters returns the predicate tree (nil when unfiltered).
func (r *Request) Filters() filter.Node { return r.filters }

// Projections returns the explicit projection mapping (nil for defaults).
func (r *Request) Projections() []Projection { return r.projections }

// RankFilters returns the ordered full-text rank filters.
func (r *Request) RankFilters() []RankFilter { return r.rankFilters }

// Vector returns the query embedding.
func (r *Request) Vector() []float32 { return r.vector }

// WithEmbedding reports whether raw vectors are echoed back in results.
func (r *Request) WithEmbedding() bool { return r.withEmbedding }

// ValidateRankText checks full-text search terms against a strict literal
// grammar (letters, digits, space, underscore, hyphen, period). The document
// dialect inlines these terms into the ORDER BY RANK clause, which accepts
// no bound parameters, so nothing looser may pass.
func ValidateRankText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty search text", domain.ErrInvalidRankTerm)
	}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ' || r == '_' || r == '-' || r == '.':
		default:
			return fmt.Errorf("%w: %q contains %q", domain.ErrInvalidRankTerm, text, r)
		}
	}
	return nil
}
