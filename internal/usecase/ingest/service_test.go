package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/result"
)

type mockRepo struct {
	upsertErr error
	getOut    []result.Result
	getErr    error
	deleteN   int64
	deleteErr error

	upserts [][]domain.Record
	gotIDs  []string
}

func (m *mockRepo) Upsert(_ context.Context, records []domain.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, records)
	return nil
}

func (m *mockRepo) Get(_ context.Context, ids []string) ([]result.Result, error) {
	m.gotIDs = ids
	return m.getOut, m.getErr
}

func (m *mockRepo) Delete(_ context.Context, ids []string) (int64, error) {
	m.gotIDs = ids
	return m.deleteN, m.deleteErr
}

type mockEmbedder struct {
	err     error
	short   bool
	batches [][]string
}

func (m *mockEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func TestIngest_SingleBatch(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{}
	svc := New(repo, emb)

	ids, err := svc.Ingest(context.Background(), []string{"one", "two"}, nil, nil)
	if err != nil {
		t.Fatalf("ingest error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %d, want 2", len(ids))
	}
	for i, id := range ids {
		if id == "" {
			t.Errorf("id %d empty, want generated", i)
		}
	}

	if len(emb.batches) != 1 {
		t.Fatalf("embed calls = %d, want 1", len(emb.batches))
	}
	if len(repo.upserts) != 1 || len(repo.upserts[0]) != 2 {
		t.Fatalf("upserts = %+v", repo.upserts)
	}
	rec := repo.upserts[0][0]
	if rec.ID != ids[0] || rec.Content != "one" || len(rec.Embedding) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestIngest_SplitsIntoBatches(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{}
	svc, err := New(repo, emb).WithBatchSize(2)
	if err != nil {
		t.Fatalf("batch size: %v", err)
	}

	ids, err := svc.Ingest(context.Background(), []string{"a", "b", "c"}, nil, nil)
	if err != nil {
		t.Fatalf("ingest error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %d, want 3", len(ids))
	}

	if len(emb.batches) != 2 {
		t.Fatalf("embed calls = %d, want 2", len(emb.batches))
	}
	if len(emb.batches[0]) != 2 || len(emb.batches[1]) != 1 {
		t.Errorf("batch sizes = %d/%d, want 2/1", len(emb.batches[0]), len(emb.batches[1]))
	}
	if repo.upserts[1][0].Content != "c" {
		t.Errorf("second batch record = %+v", repo.upserts[1][0])
	}
}

func TestIngest_IDPrecedence(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockEmbedder{})

	texts := []string{"a", "b", "c", "d"}
	metadatas := []map[string]any{
		{"id": "meta-a"},
		{"id": "meta-b"},
		nil,
		{"id": 42}, // non-string metadata id is ignored
	}
	ids := []string{"caller-a", "", "", ""}

	assigned, err := svc.Ingest(context.Background(), texts, metadatas, ids)
	if err != nil {
		t.Fatalf("ingest error: %v", err)
	}

	if assigned[0] != "caller-a" {
		t.Errorf("assigned[0] = %q, caller id wins", assigned[0])
	}
	if assigned[1] != "meta-b" {
		t.Errorf("assigned[1] = %q, metadata id is the fallback", assigned[1])
	}
	if assigned[2] == "" || assigned[3] == "" {
		t.Errorf("assigned = %v, missing generated ids", assigned)
	}
	if assigned[3] == "42" {
		t.Errorf("assigned[3] = %q, non-string metadata id must not be used", assigned[3])
	}
}

func TestIngest_Validation(t *testing.T) {
	svc := New(&mockRepo{}, &mockEmbedder{})

	t.Run("empty texts", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), nil, nil, nil)
		if !errors.Is(err, domain.ErrEmptyBatch) {
			t.Errorf("error = %v, want ErrEmptyBatch", err)
		}
	})

	t.Run("metadata length mismatch", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), []string{"a", "b"}, []map[string]any{{}}, nil)
		if !errors.Is(err, domain.ErrInvalidBatchSize) {
			t.Errorf("error = %v, want ErrInvalidBatchSize", err)
		}
	})

	t.Run("ids length mismatch", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), []string{"a", "b"}, nil, []string{"x"})
		if !errors.Is(err, domain.ErrInvalidBatchSize) {
			t.Errorf("error = %v, want ErrInvalidBatchSize", err)
		}
	})
}

func TestWithBatchSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"valid", 50, false},
		{"max", MaxBatchSize, false},
		{"zero", 0, true},
		{"negative", -1, true},
		{"over max", MaxBatchSize + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&mockRepo{}, &mockEmbedder{}).WithBatchSize(tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidBatchSize) {
				t.Errorf("error = %v, want ErrInvalidBatchSize", err)
			}
		})
	}
}

func TestIngest_EmbedFailureAborts(t *testing.T) {
	repo := &mockRepo{}
	embErr := errors.New("rate limited")
	svc := New(repo, &mockEmbedder{err: embErr})

	_, err := svc.Ingest(context.Background(), []string{"a"}, nil, nil)
	if !errors.Is(err, embErr) {
		t.Errorf("error = %v, want embed failure", err)
	}
	if len(repo.upserts) != 0 {
		t.Errorf("upserts = %d, nothing should be written", len(repo.upserts))
	}
}

func TestIngest_VectorCountMismatch(t *testing.T) {
	svc := New(&mockRepo{}, &mockEmbedder{short: true})

	_, err := svc.Ingest(context.Background(), []string{"a", "b"}, nil, nil)
	if err == nil {
		t.Fatal("expected error on vector count mismatch")
	}
}

func TestIngest_UpsertFailureKeepsEarlierBatches(t *testing.T) {
	repo := &mockRepo{}

	// Fail the second batch only.
	upsertErr := errors.New("write conflict")
	calls := 0
	failing := &failingRepo{inner: repo, failAt: 2, err: upsertErr, calls: &calls}
	svc, err := New(failing, &mockEmbedder{}).WithBatchSize(1)
	if err != nil {
		t.Fatalf("batch size: %v", err)
	}

	_, err = svc.Ingest(context.Background(), []string{"a", "b", "c"}, nil, nil)
	if !errors.Is(err, upsertErr) {
		t.Fatalf("error = %v, want upsert failure", err)
	}
	if len(repo.upserts) != 1 {
		t.Errorf("written batches = %d, first must survive", len(repo.upserts))
	}
	if calls != 2 {
		t.Errorf("upsert calls = %d, later batches must not run", calls)
	}
}

type failingRepo struct {
	inner  *mockRepo
	failAt int
	err    error
	calls  *int
}

func (f *failingRepo) Upsert(ctx context.Context, records []domain.Record) error {
	*f.calls++
	if *f.calls >= f.failAt {
		return f.err
	}
	return f.inner.Upsert(ctx, records)
}

func (f *failingRepo) Get(ctx context.Context, ids []string) ([]result.Result, error) {
	return f.inner.Get(ctx, ids)
}

func (f *failingRepo) Delete(ctx context.Context, ids []string) (int64, error) {
	return f.inner.Delete(ctx, ids)
}

func TestIngest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(&mockRepo{}, &mockEmbedder{})
	_, err := svc.Ingest(ctx, []string{"a"}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGet(t *testing.T) {
	repo := &mockRepo{getOut: []result.Result{
		result.New("a", "alpha", nil, 0, nil),
	}}
	svc := New(repo, &mockEmbedder{})

	out, err := svc.Get(context.Background(), []string{"a", "missing"})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if len(out) != 1 || out[0].ID() != "a" {
		t.Errorf("results = %+v", out)
	}
	if len(repo.gotIDs) != 2 {
		t.Errorf("ids passed = %v", repo.gotIDs)
	}

	if _, err := svc.Get(context.Background(), nil); !errors.Is(err, domain.ErrNoIDs) {
		t.Errorf("error = %v, want ErrNoIDs", err)
	}
}

func TestDelete(t *testing.T) {
	repo := &mockRepo{deleteN: 3}
	svc := New(repo, &mockEmbedder{})

	n, err := svc.Delete(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	if len(repo.gotIDs) != 3 {
		t.Errorf("ids passed = %v", repo.gotIDs)
	}

	repo.deleteErr = errors.New("boom")
	if _, err := svc.Delete(context.Background(), nil); err == nil {
		t.Error("expected wrapped delete error")
	}
}
