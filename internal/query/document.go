package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
)

// Well-known result column aliases shared with the result mapper.
const (
	ScoreColumn     = "SimilarityScore"
	TextAlias       = "text"
	MetadataAlias   = "metadata"
	EmbeddingAlias  = "embedding"
	IDColumn        = "id"
	DistanceColumn  = "distance"
	relMetadataCol  = "content_metadata"
	relContentCol   = "content"
	relIDCol        = "custom_id"
	relEmbeddingCol = "embeddings"
)

// DocumentConfig holds the document-store rendering settings.
type DocumentConfig struct {
	Container      string
	Alias          string // source alias in statement text, default "c"
	TextField      string
	EmbeddingField string
	MetadataKey    string
}

// DocumentDialect renders statements for the document store: bracket-path
// field access, TOP-prefix limits and ORDER BY RANK full-text operators.
// The rank-fusion and rank-mode limit clauses are literal-inlined because
// the store accepts no bound parameters inside ORDER BY RANK; everything
// inlined there passed identifier or rank-term validation upstream.
type DocumentDialect struct {
	cfg DocumentConfig
}

// NewDocumentDialect creates a document-store renderer.
func NewDocumentDialect(cfg DocumentConfig) *DocumentDialect {
	if cfg.Alias == "" {
		cfg.Alias = "c"
	}
	if cfg.TextField == "" {
		cfg.TextField = domain.DefaultTextField
	}
	if cfg.EmbeddingField == "" {
		cfg.EmbeddingField = domain.DefaultEmbeddingField
	}
	if cfg.MetadataKey == "" {
		cfg.MetadataKey = domain.DefaultMetadataKey
	}
	return &DocumentDialect{cfg: cfg}
}

// Name implements Dialect.
func (d *DocumentDialect) Name() string { return "document" }

// SupportsFullText implements Dialect.
func (d *DocumentDialect) SupportsFullText() bool { return true }

// FieldExpr implements fieldTokens: bracket-path access into the metadata
// object, e.g. c["metadata"]["price"].
func (d *DocumentDialect) FieldExpr(field string) string {
	return fmt.Sprintf("%s[%q][%q]", d.cfg.Alias, d.cfg.MetadataKey, field)
}

// NumericCast implements fieldTokens.
func (d *DocumentDialect) NumericCast(expr string) string {
	return "StringToNumber(" + expr + ")"
}

// Placeholder implements fieldTokens.
func (d *DocumentDialect) Placeholder(name string) string { return "@" + name }

// Render implements Dialect.
func (d *DocumentDialect) Render(req *request.Request) (*CompiledQuery, error) {
	var pred fragment
	if req.Filters() != nil {
		var err error
		pred, err = compileFilter(req.Filters(), d, &paramGen{})
		if err != nil {
			return nil, err
		}
	}

	switch req.Mode() {
	case mode.Vector, mode.FullTextSearch:
		return d.renderBound(req, pred)
	case mode.FullTextRanking, mode.Hybrid:
		return d.renderRanked(req, pred)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
}

// renderBound assembles the vector and full-text-search modes, which the
// store executes with bound parameters throughout.
func (d *DocumentDialect) renderBound(req *request.Request, pred fragment) (*CompiledQuery, error) {
	a := d.cfg.Alias
	isVector := req.Mode() == mode.Vector

	var params []Param
	var b strings.Builder
	b.WriteString("SELECT ")
	if _, _, paged := req.Page(); !paged {
		b.WriteString("TOP @limit ")
		params = append(params, Param{Name: "limit", Value: req.K()})
	}

	var proj []string
	if len(req.Projections()) > 0 {
		for _, p := range req.Projections() {
			name := "proj_" + p.Field
			proj = append(proj, fmt.Sprintf("%s[@%s] as %s", a, name, p.Alias))
			params = append(params, Param{Name: name, Value: p.Field})
		}
	} else {
		proj = append(proj, a+"."+IDColumn)
		proj = append(proj, fmt.Sprintf("%s[@textKey] as %s", a, TextAlias))
		proj = append(proj, fmt.Sprintf("%s[@metadataKey] as %s", a, MetadataAlias))
		params = append(params,
			Param{Name: "textKey", Value: d.cfg.TextField},
			Param{Name: "metadataKey", Value: d.cfg.MetadataKey},
		)
	}
	if isVector {
		if req.WithEmbedding() {
			proj = append(proj, fmt.Sprintf("%s[@embeddingKey] as %s", a, EmbeddingAlias))
		}
		proj = append(proj, fmt.Sprintf("VectorDistance(%s[@embeddingKey], @embeddings) as %s", a, ScoreColumn))
		params = append(params,
			Param{Name: "embeddingKey", Value: d.cfg.EmbeddingField},
			Param{Name: "embeddings", Value: req.Vector()},
		)
	}
	b.WriteString(strings.Join(proj, ", "))
	b.WriteString(" FROM " + a)

	if pred.text != "" {
		b.WriteString(" WHERE " + pred.text)
		params = append(params, pred.params...)
	}

	if isVector {
		b.WriteString(fmt.Sprintf(" ORDER BY VectorDistance(%s[@embeddingKey], @embeddings)", a))
	}

	if offset, limit, paged := req.Page(); paged {
		b.WriteString(fmt.Sprintf(" OFFSET %d LIMIT %d", offset, limit))
	}

	return &CompiledQuery{Text: b.String(), Params: params, Container: d.cfg.Container}, nil
}

// renderRanked assembles the full-text-ranking and hybrid modes. The limit,
// projection fields, rank-fusion clause and (for hybrid) the vector payload
// are literal-inlined; only predicate values stay bound.
func (d *DocumentDialect) renderRanked(req *request.Request, pred fragment) (*CompiledQuery, error) {
	a := d.cfg.Alias
	isHybrid := req.Mode() == mode.Hybrid

	var b strings.Builder
	b.WriteString("SELECT ")
	if _, _, paged := req.Page(); !paged {
		b.WriteString("TOP " + strconv.Itoa(req.K()) + " ")
	}

	var proj []string
	if len(req.Projections()) > 0 {
		for _, p := range req.Projections() {
			proj = append(proj, fmt.Sprintf("%s.%s as %s", a, p.Field, p.Alias))
		}
	} else {
		proj = append(proj, a+"."+IDColumn)
		proj = append(proj, fmt.Sprintf("%s.%s as %s", a, d.cfg.TextField, TextAlias))
		proj = append(proj, fmt.Sprintf("%s.%s as %s", a, d.cfg.MetadataKey, MetadataAlias))
	}
	if isHybrid {
		if req.WithEmbedding() {
			proj = append(proj, fmt.Sprintf("%s.%s as %s", a, d.cfg.EmbeddingField, EmbeddingAlias))
		}
		proj = append(proj, fmt.Sprintf("VectorDistance(%s.%s, %s) as %s",
			a, d.cfg.EmbeddingField, vectorLiteral(req.Vector()), ScoreColumn))
	}
	b.WriteString(strings.Join(proj, ", "))
	b.WriteString(" FROM " + a)

	var params []Param
	if pred.text != "" {
		b.WriteString(" WHERE " + pred.text)
		params = append(params, pred.params...)
	}

	components := make([]string, 0, len(req.RankFilters())+1)
	for _, rf := range req.RankFilters() {
		components = append(components, d.fullTextScore(rf))
	}
	if isHybrid {
		components = append(components, fmt.Sprintf("VectorDistance(%s.%s, %s)",
			a, d.cfg.EmbeddingField, vectorLiteral(req.Vector())))
	}
	if len(components) == 1 {
		b.WriteString(" ORDER BY RANK " + components[0])
	} else {
		b.WriteString(" ORDER BY RANK RRF(" + strings.Join(components, ", ") + ")")
	}

	if offset, limit, paged := req.Page(); paged {
		b.WriteString(fmt.Sprintf(" OFFSET %d LIMIT %d", offset, limit))
	}

	return &CompiledQuery{Text: b.String(), Params: params, Container: d.cfg.Container}, nil
}

// fullTextScore renders one FullTextScore component with its search terms
// split on whitespace and inlined as single-quoted literals.
func (d *DocumentDialect) fullTextScore(rf request.RankFilter) string {
	terms := strings.Fields(rf.SearchText)
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "'" + t + "'"
	}
	return fmt.Sprintf("FullTextScore(%s.%s, [%s])", d.cfg.Alias, rf.SearchField, strings.Join(quoted, ", "))
}

// vectorLiteral renders an embedding as an inline array literal.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
