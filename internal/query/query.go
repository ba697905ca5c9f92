package query

import (
	"strings"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
)

// Param is one named bound parameter. Names are bare (no sigil); each store
// adapter prepends its own placeholder syntax when binding.
type Param struct {
	Name  string
	Value any
}

// CompiledQuery is the backend-ready artifact: statement text, the ordered
// bound parameters and the target container/table. Every caller-controlled
// value lives in Params; the only caller-controlled content in Text is
// identifier-validated field names and, for the document dialect's rank
// modes, rank terms that passed the strict literal grammar.
type CompiledQuery struct {
	Text      string
	Params    []Param
	Container string
}

// String returns a debug representation without parameter values.
func (q *CompiledQuery) String() string {
	parts := []string{q.Text, "--"}
	for _, p := range q.Params {
		parts = append(parts, "@"+p.Name)
	}
	return strings.Join(parts, " ")
}

// Dialect renders a validated search request into a CompiledQuery.
type Dialect interface {
	Name() string
	SupportsFullText() bool
	Render(req *request.Request) (*CompiledQuery, error)
}

// Build compiles a search request for the given dialect. Full-text modes
// fail fast on dialects without a full-text surface.
func Build(req *request.Request, d Dialect) (*CompiledQuery, error) {
	if req.Mode().UsesFullText() && !d.SupportsFullText() {
		return nil, domain.ErrFullTextNotSupported
	}
	return d.Render(req)
}
