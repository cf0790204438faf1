package vector_store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
)

// PostgresStore pgvector-backed vector store. One table per index inside a
// dedicated schema; cosine distance via the <=> operator.
type PostgresStore struct {
	pool       *pgxpool.Pool
	database   string
	schema     string
	defaultDim int

	mu   sync.Mutex
	dims map[string]int
}

var tableNamePattern = regexp.MustCompile(`[^a-z0-9_]+`)

// InitializePostgresStore connects using postgres.* configuration.
func InitializePostgresStore(ctx context.Context) (VectorStore, error) {
	host := g.Cfg().MustGet(ctx, "postgres.host", "").String()
	port := g.Cfg().MustGet(ctx, "postgres.port", "5432").String()
	user := g.Cfg().MustGet(ctx, "postgres.user", "").String()
	password := g.Cfg().MustGet(ctx, "postgres.password", "").String()
	database := g.Cfg().MustGet(ctx, "postgres.database", "").String()
	sslMode := g.Cfg().MustGet(ctx, "postgres.sslmode", "disable").String()
	dim := g.Cfg().MustGet(ctx, "postgres.dim", common.DefaultDimension).Int()

	if host == "" || user == "" || database == "" {
		return nil, errors.New(errors.ErrConfiguration, "postgres configuration is incomplete. Required: host, user, database")
	}

	var connStr string
	if password != "" {
		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, database, sslMode)
	} else {
		connStr = fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
			host, port, user, database, sslMode)
	}

	g.Log().Infof(ctx, "Connecting to PostgreSQL at: %s:%s, database: %s", host, port, database)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to create postgres connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to ping postgres: %v", err)
	}

	store, err := NewPostgresStore(&VectorStoreConfig{
		Type:      VectorStoreTypePostgreSQL,
		Client:    pool,
		Database:  database,
		Dimension: dim,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	if err := store.(*PostgresStore).ensureExtension(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore creates a pgvector store instance
func NewPostgresStore(config *VectorStoreConfig) (VectorStore, error) {
	if config == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "config cannot be nil")
	}

	pool, ok := config.Client.(*pgxpool.Pool)
	if !ok {
		return nil, errors.New(errors.ErrInvalidParameter, "client must be *pgxpool.Pool")
	}

	dim := config.Dimension
	if dim <= 0 {
		dim = common.DefaultDimension
	}

	return &PostgresStore{
		pool:       pool,
		database:   config.Database,
		schema:     "vectors",
		defaultDim: dim,
		dims:       make(map[string]int),
	}, nil
}

func (p *PostgresStore) ensureExtension(ctx context.Context) error {
	var extensionExists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&extensionExists)
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to check pgvector extension: %v", err)
	}
	if !extensionExists {
		g.Log().Infof(ctx, "pgvector extension not found, attempting to create...")
		if _, err = p.pool.Exec(ctx, "CREATE EXTENSION vector"); err != nil {
			return errors.Newf(errors.ErrVectorStoreInit, "failed to create pgvector extension: %v. Please ensure pgvector is installed for your PostgreSQL version", err)
		}
	}
	if _, err = p.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", p.schema)); err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to create vectors schema: %v", err)
	}
	return nil
}

func (p *PostgresStore) CreateIndex(ctx context.Context, name string, dimension int, metric string) error {
	table := p.fullTableName(name)

	createSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id       TEXT PRIMARY KEY,
			vector   vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, table, dimension)
	if _, err := p.pool.Exec(ctx, createSQL); err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to create table %s: %v", table, err)
	}

	indexSQL := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_vector_idx ON %s USING hnsw (vector vector_cosine_ops)",
		p.sanitizeTableName(name), table)
	if _, err := p.pool.Exec(ctx, indexSQL); err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to create index on table %s: %v", table, err)
	}

	p.rememberDim(name, dimension)
	g.Log().Infof(ctx, "Table '%s' ready with dimension %d", table, dimension)
	return nil
}

func (p *PostgresStore) IndexExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)",
		p.schema, p.sanitizeTableName(name),
	).Scan(&exists)
	if err != nil {
		return false, errors.Newf(errors.ErrVectorSearch, "failed to check if table exists: %v", err)
	}
	return exists, nil
}

func (p *PostgresStore) DropIndex(ctx context.Context, name string) error {
	table := p.fullTableName(name)
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to drop table %s: %v", table, err)
	}
	p.mu.Lock()
	delete(p.dims, name)
	p.mu.Unlock()
	g.Log().Infof(ctx, "Table '%s' dropped", table)
	return nil
}

func (p *PostgresStore) Upsert(ctx context.Context, name string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	dim, err := p.ensureIndex(ctx, name)
	if err != nil {
		return err
	}
	table := p.fullTableName(name)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return errors.Newf(errors.ErrVectorInsert, "failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, vector, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET vector = EXCLUDED.vector, metadata = EXCLUDED.metadata
	`, table)

	for _, rec := range records {
		if rec.ID == "" {
			return errors.New(errors.ErrInvalidParameter, "record id cannot be empty")
		}
		if len(rec.Values) != dim {
			return errors.Newf(errors.ErrDimensionMismatch,
				"record %s has dimension %d, table '%s' expects %d", rec.ID, len(rec.Values), table, dim)
		}
		metaBytes, err := marshalMetadata(rec.Metadata)
		if err != nil {
			return errors.Newf(errors.ErrVectorInsert, "failed to marshal metadata: %v", err)
		}
		if _, err := tx.Exec(ctx, upsertSQL, rec.ID, pgvector.NewVector(rec.Values), metaBytes); err != nil {
			return errors.Newf(errors.ErrVectorInsert, "failed to upsert vector for record %s: %v", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Newf(errors.ErrVectorInsert, "failed to commit transaction: %v", err)
	}

	g.Log().Infof(ctx, "Upserted %d vectors into table '%s'", len(records), table)
	return nil
}

func (p *PostgresStore) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParameter, "topK must be positive, got %d", topK)
	}

	dim, err := p.ensureIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, errors.Newf(errors.ErrDimensionMismatch,
			"query vector has dimension %d, table '%s' expects %d", len(vector), name, dim)
	}
	table := p.fullTableName(name)

	// cosine similarity = 1 - cosine distance
	querySQL := fmt.Sprintf(`
		SELECT id, metadata, 1 - (vector <=> $1) AS score
		FROM %s
	`, table)

	args := []any{pgvector.NewVector(vector)}
	if len(filter) > 0 {
		filterBytes, err := sonic.Marshal(filter)
		if err != nil {
			return nil, errors.Newf(errors.ErrVectorSearch, "failed to marshal filter: %v", err)
		}
		querySQL += " WHERE metadata @> $2"
		args = append(args, filterBytes)
	}
	querySQL += fmt.Sprintf(" ORDER BY vector <=> $1 LIMIT %d", topK)

	rows, err := p.pool.Query(ctx, querySQL, args...)
	if err != nil {
		return nil, errors.Newf(errors.ErrVectorSearch, "search has error: %v", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id        string
			metaBytes []byte
			score     float64
		)
		if err := rows.Scan(&id, &metaBytes, &score); err != nil {
			return nil, errors.Newf(errors.ErrVectorSearch, "failed to scan row: %v", err)
		}
		match := Match{ID: id, Score: float32(score)}
		if includeMetadata && len(metaBytes) > 0 {
			var metadata map[string]any
			if err := sonic.Unmarshal(metaBytes, &metadata); err == nil {
				match.Metadata = metadata
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Newf(errors.ErrVectorSearch, "row iteration failed: %v", err)
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

func (p *PostgresStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	table := p.fullTableName(name)

	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", table), ids); err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to delete %d ids: %v", len(ids), err)
	}
	return nil
}

func (p *PostgresStore) ensureIndex(ctx context.Context, name string) (int, error) {
	exists, err := p.IndexExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		g.Log().Warningf(ctx, "Table for index '%s' does not exist, auto-creating with dimension %d and cosine metric", name, p.defaultDim)
		if err := p.CreateIndex(ctx, name, p.defaultDim, common.MetricCosine); err != nil {
			return 0, err
		}
		return p.defaultDim, nil
	}

	p.mu.Lock()
	dim, ok := p.dims[name]
	p.mu.Unlock()
	if ok {
		return dim, nil
	}

	// table created outside this process: read the declared dimension back
	var declared int
	err = p.pool.QueryRow(ctx, `
		SELECT coalesce(atttypmod, 0)
		FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'vector'
	`, p.fullTableName(name)).Scan(&declared)
	if err != nil || declared <= 0 {
		declared = p.defaultDim
	}
	p.rememberDim(name, declared)
	return declared, nil
}

func (p *PostgresStore) rememberDim(name string, dim int) {
	p.mu.Lock()
	p.dims[name] = dim
	p.mu.Unlock()
}

// sanitizeTableName lowercases and strips anything that is not [a-z0-9_],
// preventing SQL injection through index names.
func (p *PostgresStore) sanitizeTableName(name string) string {
	cleaned := tableNamePattern.ReplaceAllString(strings.ToLower(name), "_")
	if cleaned == "" {
		cleaned = "unnamed"
	}
	return cleaned
}

func (p *PostgresStore) fullTableName(name string) string {
	return fmt.Sprintf("%s.%s", p.schema, p.sanitizeTableName(name))
}
