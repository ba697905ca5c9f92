package cosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/corvus-cloud/vecgate/internal/db"
	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/query"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for the document store.
type Config struct {
	Endpoint       string
	Key            string
	Database       string
	Container      string
	TextField      string
	EmbeddingField string
	MetadataKey    string
}

// Store implements db.Store against Azure Cosmos DB for NoSQL. Documents are
// partitioned by id; queries run cross-partition.
type Store struct {
	container *azcosmos.ContainerClient
	dialect   *query.DocumentDialect
	cfg       Config
}

// NewStore connects to the document store and provisions the database and
// container if absent (the only side effect of construction).
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, fmt.Errorf("endpoint and key are required")
	}
	if cfg.Database == "" || cfg.Container == "" {
		return nil, fmt.Errorf("database and container are required")
	}
	applyFieldDefaults(&cfg)

	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if err := createIfAbsent(ctx, client, cfg); err != nil {
		return nil, err
	}

	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("container handle: %w", err)
	}

	return &Store{
		container: container,
		dialect: query.NewDocumentDialect(query.DocumentConfig{
			Container:      cfg.Container,
			TextField:      cfg.TextField,
			EmbeddingField: cfg.EmbeddingField,
			MetadataKey:    cfg.MetadataKey,
		}),
		cfg: cfg,
	}, nil
}

func applyFieldDefaults(cfg *Config) {
	if cfg.TextField == "" {
		cfg.TextField = domain.DefaultTextField
	}
	if cfg.EmbeddingField == "" {
		cfg.EmbeddingField = domain.DefaultEmbeddingField
	}
	if cfg.MetadataKey == "" {
		cfg.MetadataKey = domain.DefaultMetadataKey
	}
}

func createIfAbsent(ctx context.Context, client *azcosmos.Client, cfg Config) error {
	_, err := client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: cfg.Database}, nil)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("create database: %w", err)
	}

	database, err := client.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	_, err = database.CreateContainer(ctx, azcosmos.ContainerProperties{
		ID: cfg.Container,
		PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
			Paths: []string{"/id"},
		},
	}, nil)
	if err != nil && !isConflict(err) {
		return fmt.Errorf("create container: %w", err)
	}
	return nil
}

// Dialect implements db.Store.
func (s *Store) Dialect() query.Dialect { return s.dialect }

// Ping implements db.Pinger via a container metadata read.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.container.Read(ctx, nil); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Query implements db.Store: executes the compiled statement with its bound
// parameters as a cross-partition item query.
func (s *Store) Query(ctx context.Context, q *query.CompiledQuery) ([]db.Row, error) {
	params := make([]azcosmos.QueryParameter, len(q.Params))
	for i, p := range q.Params {
		params[i] = azcosmos.QueryParameter{Name: "@" + p.Name, Value: p.Value}
	}

	pager := s.container.NewQueryItemsPager(q.Text, azcosmos.NewPartitionKey(), &azcosmos.QueryOptions{
		QueryParameters: params,
	})

	var rows []db.Row
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		for _, raw := range page.Items {
			var row db.Row
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, &db.Error{Op: db.OpQuery, Err: err}
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Upsert implements db.Store: one item write per record, partitioned by id.
func (s *Store) Upsert(ctx context.Context, records []domain.Record) error {
	for _, r := range records {
		item := map[string]any{
			"id":                 r.ID,
			s.cfg.TextField:      r.Content,
			s.cfg.EmbeddingField: r.Embedding,
			s.cfg.MetadataKey:    r.Metadata,
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return &db.Error{Op: db.OpUpsert, Err: err}
		}
		pk := azcosmos.NewPartitionKeyString(r.ID)
		if _, err := s.container.UpsertItem(ctx, pk, payload, nil); err != nil {
			return &db.Error{Op: db.OpUpsert, Err: err}
		}
	}
	return nil
}

// Get implements db.Store via an id-membership query.
func (s *Store) Get(ctx context.Context, ids []string) ([]db.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := &query.CompiledQuery{
		Text: fmt.Sprintf(
			"SELECT c.id, c[@textKey] as %s, c[@metadataKey] as %s FROM c WHERE ARRAY_CONTAINS(@ids, c.id)",
			query.TextAlias, query.MetadataAlias),
		Params: []query.Param{
			{Name: "textKey", Value: s.cfg.TextField},
			{Name: "metadataKey", Value: s.cfg.MetadataKey},
			{Name: "ids", Value: ids},
		},
		Container: s.cfg.Container,
	}
	return s.Query(ctx, q)
}

// Delete implements db.Store. The document store requires explicit ids;
// already-deleted items do not count toward the total.
func (s *Store) Delete(ctx context.Context, ids []string) (int64, error) {
	if ids == nil {
		return 0, domain.ErrNoIDs
	}
	var affected int64
	for _, id := range ids {
		pk := azcosmos.NewPartitionKeyString(id)
		if _, err := s.container.DeleteItem(ctx, pk, id, nil); err != nil {
			if isNotFound(err) {
				continue
			}
			return affected, &db.Error{Op: db.OpDelete, Err: err}
		}
		affected++
	}
	return affected, nil
}

// Close implements db.Store. The underlying client is HTTP-based and holds
// no long-lived connections to release.
func (s *Store) Close() {}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
