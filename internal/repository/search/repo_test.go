package search

import (
	"context"
	"errors"
	"testing"

	"github.com/corvus-cloud/vecgate/internal/db"
	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/mode"
	"github.com/corvus-cloud/vecgate/internal/domain/search/request"
	"github.com/corvus-cloud/vecgate/internal/query"
)

type mockStore struct {
	rows     []db.Row
	queryErr error
	dialect  query.Dialect

	gotQuery *query.CompiledQuery
	calls    int
}

func (m *mockStore) Query(_ context.Context, q *query.CompiledQuery) ([]db.Row, error) {
	m.calls++
	m.gotQuery = q
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.rows, nil
}

func (m *mockStore) Dialect() query.Dialect {
	if m.dialect != nil {
		return m.dialect
	}
	return query.NewDocumentDialect(query.DocumentConfig{Container: "items"})
}

func vectorRequest(t *testing.T, withEmbedding bool) *request.Request {
	t.Helper()
	req, err := request.New(mode.Vector, 4, nil, nil, nil, []float32{0.1, 0.2}, withEmbedding)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

func TestSearch_MapsRows(t *testing.T) {
	store := &mockStore{rows: []db.Row{
		{
			"id":              "doc-1",
			"text":            "first",
			"metadata":        map[string]any{"category": "books"},
			"SimilarityScore": 0.93,
		},
		{
			"id":       "doc-2",
			"text":     "second",
			"metadata": `{"category":"toys"}`,
			"distance": float32(0.25),
		},
	}}
	repo := New(store)

	results, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	if results[0].ID() != "doc-1" || results[0].Content() != "first" {
		t.Errorf("first result = %q/%q", results[0].ID(), results[0].Content())
	}
	if results[0].Score() != 0.93 {
		t.Errorf("score = %v", results[0].Score())
	}
	if results[0].Metadata()["category"] != "books" {
		t.Errorf("metadata = %v", results[0].Metadata())
	}

	// JSON-text metadata and float32 distance both normalize.
	if results[1].Metadata()["category"] != "toys" {
		t.Errorf("json metadata = %v", results[1].Metadata())
	}
	if results[1].Score() != 0.25 {
		t.Errorf("distance score = %v", results[1].Score())
	}
}

func TestSearch_SkipsRowsWithoutID(t *testing.T) {
	store := &mockStore{rows: []db.Row{
		{"text": "orphan"},
		{"id": "", "text": "blank"},
		{"id": "doc-1", "text": "kept"},
	}}
	repo := New(store)

	results, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].ID() != "doc-1" {
		t.Errorf("results = %+v, want only doc-1", results)
	}
}

func TestSearch_ScoreColumnPrecedence(t *testing.T) {
	store := &mockStore{rows: []db.Row{
		{"id": "d", "text": "t", "SimilarityScore": 0.9, "distance": 0.1},
	}}
	repo := New(store)

	results, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if results[0].Score() != 0.9 {
		t.Errorf("score = %v, similarity column wins over distance", results[0].Score())
	}
}

func TestSearch_ProjectionColumnsFoldIntoMetadata(t *testing.T) {
	store := &mockStore{rows: []db.Row{
		{"id": "d", "text": "t", "name": "widget", "year": int64(2024)},
	}}
	repo := New(store)

	results, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	md := results[0].Metadata()
	if md["name"] != "widget" {
		t.Errorf("metadata = %v, want projected column folded in", md)
	}
	if md["year"] != int64(2024) {
		t.Errorf("metadata year = %v", md["year"])
	}
}

func TestSearch_EmbeddingShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"float32 slice", []float32{0.1, 0.2, 0.3}, 3},
		{"any slice", []any{0.1, 0.2}, 2},
		{"text form", "[0.5, 0.25]", 2},
		{"byte text form", []byte("[1,2,3,4]"), 4},
		{"garbage text", "[a,b]", 0},
		{"absent", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{rows: []db.Row{
				{"id": "d", "text": "t", "embedding": tt.raw},
			}}
			repo := New(store)

			results, err := repo.Search(context.Background(), vectorRequest(t, true))
			if err != nil {
				t.Fatalf("search error: %v", err)
			}
			if got := len(results[0].Vector()); got != tt.want {
				t.Errorf("vector len = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSearch_VectorIgnoredWithoutFlag(t *testing.T) {
	store := &mockStore{rows: []db.Row{
		{"id": "d", "text": "t", "embedding": []float32{0.1}},
	}}
	repo := New(store)

	results, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if results[0].Vector() != nil {
		t.Errorf("vector = %v, want nil without the embedding flag", results[0].Vector())
	}
}

func TestSearch_StoreErrorWrapped(t *testing.T) {
	storeErr := &db.Error{Op: db.OpQuery, Err: errors.New("boom")}
	store := &mockStore{queryErr: storeErr}
	repo := New(store)

	_, err := repo.Search(context.Background(), vectorRequest(t, false))
	if err == nil {
		t.Fatal("expected error")
	}

	var execErr *domain.StoreError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want StoreError", err)
	}
	if execErr.Mode != "vector" || execErr.Container != "items" {
		t.Errorf("StoreError mode = %q, container = %q, want vector/items", execErr.Mode, execErr.Container)
	}

	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Errorf("error = %v, want wrapped db.Error", err)
	}
}

func TestSearch_CompileErrorSkipsStore(t *testing.T) {
	d, err := query.NewRelationalDialect(query.RelationalConfig{Table: "docs", EmbeddingLength: 2})
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	store := &mockStore{dialect: d}
	repo := New(store)

	req, err := request.New(mode.FullTextRanking, 4, nil, nil,
		[]request.RankFilter{{SearchField: "text", SearchText: "bicycle"}}, nil, false)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	_, err = repo.Search(context.Background(), &req)
	if !errors.Is(err, domain.ErrFullTextNotSupported) {
		t.Errorf("error = %v, want ErrFullTextNotSupported", err)
	}
	if store.calls != 0 {
		t.Errorf("store queried %d times, compile failure must not execute", store.calls)
	}
}

func TestSupportsFullText(t *testing.T) {
	doc := &mockStore{}
	if !New(doc).SupportsFullText() {
		t.Error("document-backed repo must report full-text support")
	}

	rel, err := query.NewRelationalDialect(query.RelationalConfig{Table: "docs", EmbeddingLength: 2})
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	if New(&mockStore{dialect: rel}).SupportsFullText() {
		t.Error("relational-backed repo must not report full-text support")
	}
}
