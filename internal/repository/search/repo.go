package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/corvus-cloud/vecgate/internal/db"
	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
	"github.com/corvus-cloud/vecgate/internal/metrics"
	"github.com/corvus-cloud/vecgate/internal/query"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Query(ctx context.Context, q *query.CompiledQuery) ([]db.Row, error)
	Dialect() query.Dialect
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SupportsFullText proxies the capability check from the dialect.
func (r *Repo) SupportsFullText() bool {
	return r.store.Dialect().SupportsFullText()
}

// Search compiles the request against the store's dialect, executes it and
// maps the raw rows into results. Rows missing an identifier or content are
// dropped, not failed.
func (r *Repo) Search(ctx context.Context, req *request.Request) ([]result.Result, error) {
	q, err := query.Build(req, r.store.Dialect())
	if err != nil {
		return nil, fmt.Errorf("compile %s query: %w", req.Mode(), err)
	}

	rows, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, domain.NewStoreError(string(req.Mode()), q.Container, err)
	}

	return mapRows(rows, req.WithEmbedding()), nil
}

// mapRows converts raw store rows into normalized results.
func mapRows(rows []db.Row, withEmbedding bool) []result.Result {
	if len(rows) == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(rows))
	for _, row := range rows {
		res, ok := mapRow(row, withEmbedding)
		if !ok {
			metrics.SearchRowsSkippedTotal.Inc()
			continue
		}
		results = append(results, res)
	}
	return results
}

// mapRow parses a single row. Known columns feed the result directly; any
// remaining columns (custom projections) fold into metadata.
func mapRow(row db.Row, withEmbedding bool) (result.Result, bool) {
	id, ok := stringValue(row[query.IDColumn])
	if !ok || id == "" {
		return result.Result{}, false
	}

	content, _ := stringValue(row[query.TextAlias])
	score := rowScore(row)
	metadata := rowMetadata(row)

	var vector []float32
	if withEmbedding {
		vector = parseVector(row[query.EmbeddingAlias])
	}

	return result.New(id, content, metadata, score, vector), true
}

// rowScore picks the mode-dependent score column: the document dialect's
// similarity column, the relational dialect's distance column, or 0.0 when
// the query carried no score.
func rowScore(row db.Row) float64 {
	if v, ok := row[query.ScoreColumn]; ok {
		if f, ok := floatValue(v); ok {
			return f
		}
	}
	if v, ok := row[query.DistanceColumn]; ok {
		if f, ok := floatValue(v); ok {
			return f
		}
	}
	return 0.0
}

// rowMetadata extracts the metadata column and folds leftover projection
// columns on top of it.
func rowMetadata(row db.Row) map[string]any {
	metadata := parseMetadata(row[query.MetadataAlias])

	for k, v := range row {
		switch k {
		case query.IDColumn, query.TextAlias, query.MetadataAlias,
			query.EmbeddingAlias, query.ScoreColumn, query.DistanceColumn:
			continue
		}
		if metadata == nil {
			metadata = make(map[string]any)
		}
		metadata[k] = v
	}
	return metadata
}

// parseMetadata accepts the metadata column in either its decoded map form
// or as raw JSON text.
func parseMetadata(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case []byte:
		return unmarshalMetadata(m)
	case string:
		return unmarshalMetadata([]byte(m))
	default:
		return nil
	}
}

func unmarshalMetadata(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// parseVector accepts an embedding as a decoded float slice or in the
// relational store's text form "[0.1,0.2]".
func parseVector(v any) []float32 {
	switch vec := v.(type) {
	case []float32:
		return vec
	case []any:
		out := make([]float32, 0, len(vec))
		for _, e := range vec {
			f, ok := floatValue(e)
			if !ok {
				return nil
			}
			out = append(out, float32(f))
		}
		return out
	case string:
		return parseVectorText(vec)
	case []byte:
		return parseVectorText(string(vec))
	default:
		return nil
	}
}

func parseVectorText(s string) []float32 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil
		}
		out = append(out, float32(f))
	}
	return out
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

func floatValue(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int64:
		return float64(f), true
	case int:
		return float64(f), true
	case json.Number:
		parsed, err := f.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
