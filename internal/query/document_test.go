package query

import (
	"strings"
	"testing"

	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
)

func mustRequest(t *testing.T, m mode.Mode, k int, filters filter.Node,
	projections []request.Projection, rankFilters []request.RankFilter,
	vector []float32, withEmbedding bool,
) *request.Request {
	t.Helper()
	req, err := request.New(m, k, filters, projections, rankFilters, vector, withEmbedding)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

func paramByName(t *testing.T, params []Param, name string) any {
	t.Helper()
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	t.Fatalf("param %q not found in %+v", name, params)
	return nil
}

func TestDocumentRender_Vector(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.Vector, 5, nil, nil, nil, []float32{0.1, 0.2}, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	want := "SELECT TOP @limit c.id, c[@textKey] as text, c[@metadataKey] as metadata, " +
		"VectorDistance(c[@embeddingKey], @embeddings) as SimilarityScore FROM c " +
		"ORDER BY VectorDistance(c[@embeddingKey], @embeddings)"
	if q.Text != want {
		t.Errorf("text = %q\nwant   %q", q.Text, want)
	}
	if q.Container != "items" {
		t.Errorf("container = %q", q.Container)
	}
	if got := paramByName(t, q.Params, "limit"); got != 5 {
		t.Errorf("limit param = %v", got)
	}
	if got := paramByName(t, q.Params, "embeddingKey"); got != "embedding" {
		t.Errorf("embeddingKey param = %v", got)
	}
	vec, ok := paramByName(t, q.Params, "embeddings").([]float32)
	if !ok || len(vec) != 2 {
		t.Errorf("embeddings param = %v", vec)
	}
}

func TestDocumentRender_VectorWithEmbedding(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.Vector, 5, nil, nil, nil, []float32{0.1}, true)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(q.Text, "c[@embeddingKey] as embedding,") {
		t.Errorf("text = %q, want embedding projection", q.Text)
	}
}

func TestDocumentRender_VectorWithFilter(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	node, err := filter.Parse(map[string]any{"category": "books"})
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	req := mustRequest(t, mode.Vector, 3, node, nil, nil, []float32{0.1}, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(q.Text, ` WHERE c["metadata"]["category"] = @p0 ORDER BY `) {
		t.Errorf("text = %q, want WHERE before ORDER BY", q.Text)
	}
	if got := paramByName(t, q.Params, "p0"); got != "books" {
		t.Errorf("p0 = %v", got)
	}
}

func TestDocumentRender_VectorPaged(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.Vector, 5, nil, nil, nil, []float32{0.1}, false)
	paged, err := req.WithPage(10, 20)
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	q, err := d.Render(&paged)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if strings.Contains(q.Text, "TOP") {
		t.Errorf("text = %q, paged query must not use TOP", q.Text)
	}
	if !strings.HasSuffix(q.Text, " OFFSET 10 LIMIT 20") {
		t.Errorf("text = %q, want trailing OFFSET/LIMIT", q.Text)
	}
	for _, p := range q.Params {
		if p.Name == "limit" {
			t.Errorf("paged query must not bind @limit")
		}
	}
}

func TestDocumentRender_VectorCustomProjections(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.Vector, 2, nil,
		[]request.Projection{{Field: "title", Alias: "name"}}, nil, []float32{0.1}, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(q.Text, "c[@proj_title] as name") {
		t.Errorf("text = %q, want bound projection", q.Text)
	}
	if strings.Contains(q.Text, "c[@textKey]") {
		t.Errorf("text = %q, default projection should be replaced", q.Text)
	}
	if got := paramByName(t, q.Params, "proj_title"); got != "title" {
		t.Errorf("proj_title = %v", got)
	}
}

func TestDocumentRender_FullTextSearch(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	node, err := filter.Parse(map[string]any{"lang": "en"})
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	req := mustRequest(t, mode.FullTextSearch, 7, node, nil, nil, nil, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if strings.Contains(q.Text, "VectorDistance") {
		t.Errorf("text = %q, full-text search must not score by distance", q.Text)
	}
	if strings.Contains(q.Text, "ORDER BY") {
		t.Errorf("text = %q, full-text search has no ordering clause", q.Text)
	}
	if !strings.HasPrefix(q.Text, "SELECT TOP @limit ") {
		t.Errorf("text = %q, want bound TOP", q.Text)
	}
}

func TestDocumentRender_FullTextRanking(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.FullTextRanking, 4, nil, nil,
		[]request.RankFilter{{SearchField: "text", SearchText: "red bicycle"}}, nil, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	want := "SELECT TOP 4 c.id, c.text as text, c.metadata as metadata FROM c " +
		"ORDER BY RANK FullTextScore(c.text, ['red', 'bicycle'])"
	if q.Text != want {
		t.Errorf("text = %q\nwant   %q", q.Text, want)
	}
	if len(q.Params) != 0 {
		t.Errorf("params = %+v, ranked query without filter binds nothing", q.Params)
	}
}

func TestDocumentRender_FullTextRankingMultiRRF(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.FullTextRanking, 4, nil, nil,
		[]request.RankFilter{
			{SearchField: "text", SearchText: "bicycle"},
			{SearchField: "title", SearchText: "red"},
		}, nil, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	want := "ORDER BY RANK RRF(FullTextScore(c.text, ['bicycle']), FullTextScore(c.title, ['red']))"
	if !strings.HasSuffix(q.Text, want) {
		t.Errorf("text = %q, want RRF fusion suffix", q.Text)
	}
}

func TestDocumentRender_Hybrid(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	req := mustRequest(t, mode.Hybrid, 4, nil, nil,
		[]request.RankFilter{{SearchField: "text", SearchText: "bicycle"}},
		[]float32{0.5, 0.25}, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	want := "ORDER BY RANK RRF(FullTextScore(c.text, ['bicycle']), VectorDistance(c.embedding, [0.5,0.25]))"
	if !strings.HasSuffix(q.Text, want) {
		t.Errorf("text = %q, want hybrid RRF suffix", q.Text)
	}
	if !strings.Contains(q.Text, "VectorDistance(c.embedding, [0.5,0.25]) as SimilarityScore") {
		t.Errorf("text = %q, want inline distance projection", q.Text)
	}
}

func TestDocumentRender_RankedFilterStaysBound(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	node, err := filter.Parse(map[string]any{"category": "'); DROP--"})
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	req := mustRequest(t, mode.FullTextRanking, 4, node, nil,
		[]request.RankFilter{{SearchField: "text", SearchText: "bicycle"}}, nil, false)

	q, err := d.Render(req)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if strings.Contains(q.Text, "DROP") {
		t.Errorf("text = %q, predicate value leaked", q.Text)
	}
	if got := paramByName(t, q.Params, "p0"); got != "'); DROP--" {
		t.Errorf("p0 = %v", got)
	}
}

func TestDocumentDialect_Defaults(t *testing.T) {
	d := NewDocumentDialect(DocumentConfig{Container: "items"})
	if d.Name() != "document" {
		t.Errorf("name = %q", d.Name())
	}
	if !d.SupportsFullText() {
		t.Error("document dialect must support full text")
	}
	if got := d.FieldExpr("price"); got != `c["metadata"]["price"]` {
		t.Errorf("field expr = %q", got)
	}
}
