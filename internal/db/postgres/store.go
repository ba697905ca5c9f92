package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvus-cloud/vecgate/internal/db"
	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
	"github.com/corvus-cloud/vecgate/internal/query"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for the relational store.
type Config struct {
	ConnString      string
	Table           string
	DistanceMetric  string
	EmbeddingLength int
}

// Store implements db.Store against PostgreSQL. The embeddings table is
// created at construction if absent; statements bind named arguments, with
// pgx rewriting @name placeholders.
type Store struct {
	pool    *pgxpool.Pool
	dialect *query.RelationalDialect
	cfg     Config
}

// NewStore connects to the relational store and provisions the table if
// absent.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if cfg.Table == "" {
		cfg.Table = "vecgate_store"
	}
	// The table name is interpolated into statement text, so it must pass
	// the same identifier grammar as filter fields.
	if err := filter.ValidateIdentifier(cfg.Table); err != nil {
		return nil, fmt.Errorf("table name: %w", err)
	}

	dialect, err := query.NewRelationalDialect(query.RelationalConfig{
		Table:           cfg.Table,
		DistanceMetric:  cfg.DistanceMetric,
		EmbeddingLength: cfg.EmbeddingLength,
	})
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := &Store{pool: pool, dialect: dialect, cfg: cfg}
	if err := s.createIfAbsent(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createIfAbsent(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provision %s: %w", s.cfg.Table, err)
		}
	}
	return nil
}

// schemaStatements provisions the pgvector extension, a VECTOR_DISTANCE
// wrapper dispatching the metric name to the extension's distance operators,
// and the embeddings table. Order matters: the VECTOR type exists only after
// the extension is created.
func (s *Store) schemaStatements() []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION vector_distance(metric TEXT, a VECTOR, b VECTOR)
RETURNS DOUBLE PRECISION
LANGUAGE SQL IMMUTABLE PARALLEL SAFE
AS $$
	SELECT CASE metric
		WHEN '%s' THEN a <=> b
		WHEN '%s' THEN a <-> b
		WHEN '%s' THEN a <#> b
	END
$$`, query.MetricCosine, query.MetricEuclidean, query.MetricDot),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	custom_id VARCHAR(1000) UNIQUE,
	content TEXT NOT NULL,
	content_metadata JSONB,
	embeddings VECTOR(%d) NOT NULL
)`, s.cfg.Table, s.cfg.EmbeddingLength),
	}
}

// Dialect implements db.Store.
func (s *Store) Dialect() query.Dialect { return s.dialect }

// Ping implements db.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Query implements db.Store.
func (s *Store) Query(ctx context.Context, q *query.CompiledQuery) ([]db.Row, error) {
	args := pgx.NamedArgs{}
	for _, p := range q.Params {
		args[p.Name] = p.Value
	}

	rows, err := s.pool.Query(ctx, q.Text, args)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var out []db.Row
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		row := make(db.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// Upsert implements db.Store: one multi-row insert per batch, embeddings
// cast from their text form inside the statement.
func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	args := pgx.NamedArgs{}
	tuples := make([]string, 0, len(records))
	for i, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return &db.Error{Op: db.OpUpsert, Err: err}
		}
		idName := fmt.Sprintf("id%d", i)
		contentName := fmt.Sprintf("content%d", i)
		metaName := fmt.Sprintf("meta%d", i)
		embName := fmt.Sprintf("emb%d", i)
		args[idName] = r.ID
		args[contentName] = r.Content
		args[metaName] = string(meta)
		args[embName] = vectorText(r.Embedding)
		tuples = append(tuples, fmt.Sprintf("(@%s, @%s, CAST(@%s AS JSONB), CAST(@%s AS VECTOR(%d)))",
			idName, contentName, metaName, embName, s.cfg.EmbeddingLength))
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (custom_id, content, content_metadata, embeddings) VALUES %s ON CONFLICT (custom_id) DO UPDATE SET content = EXCLUDED.content, content_metadata = EXCLUDED.content_metadata, embeddings = EXCLUDED.embeddings",
		s.cfg.Table, strings.Join(tuples, ", "))

	if _, err := s.pool.Exec(ctx, stmt, args); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	return nil
}

// Get implements db.Store.
func (s *Store) Get(ctx context.Context, ids []string) ([]db.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := &query.CompiledQuery{
		Text: fmt.Sprintf("SELECT custom_id AS %s, content AS %s, content_metadata AS %s FROM %s WHERE custom_id = ANY(@ids)",
			query.IDColumn, query.TextAlias, query.MetadataAlias, s.cfg.Table),
		Params:    []query.Param{{Name: "ids", Value: ids}},
		Container: s.cfg.Table,
	}
	return s.Query(ctx, q)
}

// Delete implements db.Store. A nil id list clears the table.
func (s *Store) Delete(ctx context.Context, ids []string) (int64, error) {
	var stmt string
	args := pgx.NamedArgs{}
	if ids == nil {
		stmt = "DELETE FROM " + s.cfg.Table
	} else {
		stmt = fmt.Sprintf("DELETE FROM %s WHERE custom_id = ANY(@ids)", s.cfg.Table)
		args["ids"] = ids
	}

	tag, err := s.pool.Exec(ctx, stmt, args)
	if err != nil {
		return 0, &db.Error{Op: db.OpDelete, Err: err}
	}
	return tag.RowsAffected(), nil
}

// Close implements db.Store.
func (s *Store) Close() { s.pool.Close() }

// vectorText renders an embedding in the vector type's text input form.
func vectorText(v []float32) string {
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
