package vector_store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
)

// MilvusStore Milvus-backed vector store, the durable production backend.
type MilvusStore struct {
	client     *milvusclient.Client
	database   string
	defaultDim int

	mu   sync.Mutex
	dims map[string]int // known index dimensions, for the client-side guard
}

// InitializeMilvusStore connects using milvus.* configuration.
func InitializeMilvusStore(ctx context.Context) (VectorStore, error) {
	address := g.Cfg().MustGet(ctx, "milvus.address", "").String()
	database := g.Cfg().MustGet(ctx, "milvus.database", "default").String()
	dim := g.Cfg().MustGet(ctx, "milvus.dim", common.DefaultDimension).Int()

	if address == "" {
		return nil, errors.New(errors.ErrConfiguration, "milvus.address is required but not found in config file")
	}

	g.Log().Infof(ctx, "Connecting to Milvus at: %s, database: %s", address, database)

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
		DBName:  database,
	})
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to create milvus client (address: %s, database: %s): %v", address, database, err)
	}

	return NewMilvusStore(&VectorStoreConfig{
		Type:      VectorStoreTypeMilvus,
		Client:    client,
		Database:  database,
		Dimension: dim,
	})
}

// NewMilvusStore creates a Milvus vector store instance
func NewMilvusStore(config *VectorStoreConfig) (VectorStore, error) {
	if config == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "config cannot be nil")
	}

	client, ok := config.Client.(*milvusclient.Client)
	if !ok {
		return nil, errors.New(errors.ErrInvalidParameter, "client must be *milvusclient.Client")
	}

	dim := config.Dimension
	if dim <= 0 {
		dim = common.DefaultDimension
	}

	return &MilvusStore{
		client:     client,
		database:   config.Database,
		defaultDim: dim,
		dims:       make(map[string]int),
	}, nil
}

func (m *MilvusStore) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	exists, err := m.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		m.rememberDim(name, dimension)
		return nil
	}

	collSchema := entity.NewSchema().
		WithName(name).
		WithDescription("teaching material chunks and their vectors").
		WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension))).
		WithField(entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeJSON))

	err = m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, collSchema).WithIndexOptions(
		milvusclient.NewCreateIndexOption(name, "vector", index.NewHNSWIndex(entity.COSINE, 64, 128))))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to create Milvus collection: %v", err)
	}

	if _, err = m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name)); err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to load Milvus collection: %v", err)
	}

	m.rememberDim(name, dimension)
	g.Log().Infof(ctx, "Collection '%s' created with dimension %d, index built and loaded", name, dimension)
	return nil
}

func (m *MilvusStore) IndexExists(ctx context.Context, name string) (bool, error) {
	has, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, errors.Newf(errors.ErrVectorSearch, "failed to check if collection exists: %v", err)
	}
	return has, nil
}

func (m *MilvusStore) DropIndex(ctx context.Context, name string) error {
	if err := m.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to drop collection: %v", err)
	}
	m.mu.Lock()
	delete(m.dims, name)
	m.mu.Unlock()
	g.Log().Infof(ctx, "Collection '%s' dropped", name)
	return nil
}

func (m *MilvusStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := m.ensureIndex(ctx, name)
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	metadataList := make([][]byte, len(records))

	for i, rec := range records {
		if rec.ID == "" {
			return errors.New(errors.ErrInvalidParameter, "record id cannot be empty")
		}
		if len(rec.Values) != dim {
			return errors.Newf(errors.ErrDimensionMismatch,
				"record %s has dimension %d, collection '%s' expects %d", rec.ID, len(rec.Values), name, dim)
		}
		ids[i] = rec.ID
		vectors[i] = rec.Values

		metaBytes, err := marshalMetadata(rec.Metadata)
		if err != nil {
			return errors.Newf(errors.ErrVectorInsert, "failed to marshal metadata: %v", err)
		}
		metadataList[i] = metaBytes
	}

	// replace-in-place semantics: drop stale rows for these ids, then insert
	if err := m.deleteByIDs(ctx, name, ids); err != nil {
		return err
	}

	columns := []column.Column{
		column.NewColumnVarChar("id", ids),
		column.NewColumnFloatVector("vector", dim, vectors),
		column.NewColumnJSONBytes("metadata", metadataList),
	}

	result, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(name, columns...))
	if err != nil {
		return errors.Newf(errors.ErrVectorInsert, "failed to insert vectors: %v", err)
	}

	g.Log().Infof(ctx, "Upserted %d vectors into collection '%s'", result.InsertCount, name)
	return nil
}

func (m *MilvusStore) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParameter, "topK must be positive, got %d", topK)
	}

	dim, err := m.ensureIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, errors.Newf(errors.ErrDimensionMismatch,
			"query vector has dimension %d, collection '%s' expects %d", len(vector), name, dim)
	}

	outputFields := []string{"id"}
	if includeMetadata {
		outputFields = append(outputFields, "metadata")
	}

	searchOpt := milvusclient.NewSearchOption(name, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField("vector").
		WithOutputFields(outputFields...).
		WithConsistencyLevel(entity.ClBounded)

	if expr := buildFilterExpr(filter); expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	results, err := m.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorSearch, "search has error: %v", err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}

	return convertSearchResults(results[0].Fields, results[0].Scores)
}

func (m *MilvusStore) Delete(ctx context.Context, name string, ids []string) error {
	return m.deleteByIDs(ctx, name, ids)
}

func (m *MilvusStore) deleteByIDs(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + sanitizeExprString(id) + `"`
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))

	if _, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(name).WithExpr(expr)); err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to delete %d ids: %v", len(ids), err)
	}
	return nil
}

// ensureIndex applies the auto-create policy and returns the index dimension.
func (m *MilvusStore) ensureIndex(ctx context.Context, name string) (int, error) {
	exists, err := m.IndexExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		g.Log().Warningf(ctx, "Collection '%s' does not exist, auto-creating with dimension %d and cosine metric", name, m.defaultDim)
		if err := m.CreateIndex(ctx, name, m.defaultDim, common.MetricCosine); err != nil {
			return 0, err
		}
		return m.defaultDim, nil
	}

	m.mu.Lock()
	dim, ok := m.dims[name]
	m.mu.Unlock()
	if ok {
		return dim, nil
	}

	// collection created outside this process: read the dimension back
	coll, err := m.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(name))
	if err != nil {
		return 0, errors.Newf(errors.ErrVectorSearch, "failed to describe collection: %v", err)
	}
	for _, field := range coll.Schema.Fields {
		if field.Name == "vector" {
			if raw, ok := field.TypeParams[entity.TypeParamDim]; ok {
				if d, err := strconv.Atoi(raw); err == nil {
					m.rememberDim(name, d)
					return d, nil
				}
			}
		}
	}
	m.rememberDim(name, m.defaultDim)
	return m.defaultDim, nil
}

func (m *MilvusStore) rememberDim(name string, dim int) {
	m.mu.Lock()
	m.dims[name] = dim
	m.mu.Unlock()
}

// buildFilterExpr renders the exact-match AND filter as a Milvus expression
// over the JSON metadata field.
func buildFilterExpr(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	// deterministic expression for identical inputs
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := filter[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf(`metadata["%s"] == "%s"`, sanitizeExprString(k), sanitizeExprString(v)))
		default:
			parts = append(parts, fmt.Sprintf(`metadata["%s"] == %v`, sanitizeExprString(k), v))
		}
	}
	return strings.Join(parts, " and ")
}

func sanitizeExprString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func convertSearchResults(columns []column.Column, scores []float32) ([]Match, error) {
	if len(columns) == 0 {
		return []Match{}, nil
	}

	numDocs := columns[0].Len()
	matches := make([]Match, numDocs)
	for i := 0; i < numDocs && i < len(scores); i++ {
		matches[i].Score = scores[i]
	}

	for _, col := range columns {
		switch col.Name() {
		case "id":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, errors.Newf(errors.ErrVectorSearch, "failed to get id: %v", err)
				}
				if str, ok := val.(string); ok {
					matches[i].ID = str
				}
			}
		case "metadata":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil || val == nil {
					continue
				}
				var metadata map[string]any
				switch v := val.(type) {
				case string:
					if err := sonic.Unmarshal([]byte(v), &metadata); err == nil {
						matches[i].Metadata = metadata
					}
				case []byte:
					if err := sonic.Unmarshal(v, &metadata); err == nil {
						matches[i].Metadata = metadata
					}
				}
			}
		}
	}

	return matches, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	return sonic.Marshal(metadata)
}
