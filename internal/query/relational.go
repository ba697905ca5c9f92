package query

import (
	"fmt"
	"strings"

	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
)

// Distance metrics accepted by the relational store's distance function.
const (
	MetricCosine    = "cosine"
	MetricEuclidean = "euclidean"
	MetricDot       = "dot"
)

// RelationalConfig holds the relational-store rendering settings.
type RelationalConfig struct {
	Table           string
	DistanceMetric  string // cosine (default), euclidean, dot
	EmbeddingLength int
}

// RelationalDialect renders statements for the relational store: JSON-path
// extraction over the metadata column, typed numeric casts, a distance
// function taking the metric name and vector payload as bound parameters,
// and a trailing LIMIT/OFFSET clause. The store has no full-text surface,
// so only the vector mode renders.
type RelationalDialect struct {
	cfg RelationalConfig
}

// NewRelationalDialect creates a relational-store renderer.
func NewRelationalDialect(cfg RelationalConfig) (*RelationalDialect, error) {
	switch cfg.DistanceMetric {
	case "":
		cfg.DistanceMetric = MetricCosine
	case MetricCosine, MetricEuclidean, MetricDot:
	default:
		return nil, fmt.Errorf("unsupported distance metric: %q", cfg.DistanceMetric)
	}
	if cfg.EmbeddingLength < 1 {
		return nil, fmt.Errorf("embedding length must be positive, got %d", cfg.EmbeddingLength)
	}
	return &RelationalDialect{cfg: cfg}, nil
}

// Name implements Dialect.
func (d *RelationalDialect) Name() string { return "relational" }

// SupportsFullText implements Dialect.
func (d *RelationalDialect) SupportsFullText() bool { return false }

// FieldExpr implements fieldTokens: JSON-path extraction from the metadata
// column, e.g. JSON_VALUE(content_metadata, '$.price').
func (d *RelationalDialect) FieldExpr(field string) string {
	return fmt.Sprintf("JSON_VALUE(%s, '$.%s')", relMetadataCol, field)
}

// NumericCast implements fieldTokens.
func (d *RelationalDialect) NumericCast(expr string) string {
	return "CAST(" + expr + " AS NUMERIC(10,2))"
}

// Placeholder implements fieldTokens.
func (d *RelationalDialect) Placeholder(name string) string { return "@" + name }

// Render implements Dialect.
func (d *RelationalDialect) Render(req *request.Request) (*CompiledQuery, error) {
	if req.Mode() != mode.Vector {
		return nil, fmt.Errorf("relational dialect renders vector mode only, got %s", req.Mode())
	}

	distanceExpr := fmt.Sprintf("VECTOR_DISTANCE(@distanceMetric, CAST(@embeddings AS VECTOR(%d)), %s)",
		d.cfg.EmbeddingLength, relEmbeddingCol)

	var proj []string
	if len(req.Projections()) > 0 {
		for _, p := range req.Projections() {
			proj = append(proj, fmt.Sprintf("%s AS %s", d.FieldExpr(p.Field), p.Alias))
		}
	} else {
		proj = append(proj,
			relIDCol+" AS "+IDColumn,
			relContentCol+" AS "+TextAlias,
			relMetadataCol+" AS "+MetadataAlias,
		)
	}
	if req.WithEmbedding() {
		proj = append(proj, fmt.Sprintf("CAST(%s AS TEXT) AS %s", relEmbeddingCol, EmbeddingAlias))
	}
	proj = append(proj, distanceExpr+" AS "+DistanceColumn)

	params := []Param{
		{Name: "distanceMetric", Value: d.cfg.DistanceMetric},
		{Name: "embeddings", Value: vectorLiteral(req.Vector())},
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(proj, ", "))
	b.WriteString(" FROM " + d.cfg.Table)

	if req.Filters() != nil {
		pred, err := compileFilter(req.Filters(), d, &paramGen{})
		if err != nil {
			return nil, err
		}
		b.WriteString(" WHERE " + pred.text)
		params = append(params, pred.params...)
	}

	b.WriteString(" ORDER BY " + DistanceColumn + " ASC")

	if offset, limit, paged := req.Page(); paged {
		b.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))
	} else {
		b.WriteString(fmt.Sprintf(" LIMIT %d", req.K()))
	}

	return &CompiledQuery{Text: b.String(), Params: params, Container: d.cfg.Table}, nil
}
