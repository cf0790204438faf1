package vector_store

import (
	"context"
)

// VectorStoreType vector store backend type
type VectorStoreType string

const (
	VectorStoreTypeMemory     VectorStoreType = "memory"
	VectorStoreTypeMilvus     VectorStoreType = "milvus"
	VectorStoreTypePostgreSQL VectorStoreType = "pgvector"
)

// Record one stored vector with its metadata. All vectors in one index share
// the index dimension; mixing dimensions is rejected at write and query time.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match one ranked query result. Score is cosine similarity in [-1, 1],
// higher is more relevant.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// VectorStoreConfig vector store backend configuration
type VectorStoreConfig struct {
	Type      VectorStoreType
	Client    interface{} // backend client instance, nil for memory
	Database  string
	Dimension int // default index dimension, used on auto-create
}

// VectorStore is a collection of named indexes supporting upsert, delete and
// top-K cosine similarity search with exact-match AND metadata filtering.
//
// Referencing a non-existent index on Upsert or Query creates it with the
// default dimension and cosine metric, and logs a warning. This bootstrap
// convenience is deliberate; DropIndex is the only destructive operation.
type VectorStore interface {
	// CreateIndex creates the named index if absent; existing indexes are untouched.
	CreateIndex(ctx context.Context, name string, dimension int, metric string) error

	// IndexExists reports whether the named index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// DropIndex removes the named index and all its records.
	DropIndex(ctx context.Context, name string) error

	// Upsert inserts records, replacing any record with the same id in place.
	Upsert(ctx context.Context, name string, records []Record) error

	// Query returns at most topK matches ranked by descending similarity,
	// ties broken by insertion order. A nil filter admits every record;
	// otherwise every filter key must match the record metadata exactly.
	Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, includeMetadata bool) ([]Match, error)

	// Delete removes records by id; unknown ids are ignored.
	Delete(ctx context.Context, name string, ids []string) error
}
