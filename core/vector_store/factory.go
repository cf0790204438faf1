package vector_store

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/errors"
)

// InitializeVectorStore determines which backend to use based on configuration
func InitializeVectorStore(ctx context.Context) (VectorStore, error) {
	storeType := g.Cfg().MustGet(ctx, "vectorStore.type", string(VectorStoreTypeMemory)).String()

	g.Log().Infof(ctx, "Initializing vector store with type: %s", storeType)

	switch VectorStoreType(storeType) {
	case VectorStoreTypeMemory:
		dim := g.Cfg().MustGet(ctx, "vectorStore.dim", common.DefaultDimension).Int()
		g.Log().Info(ctx, "In-memory vector store initialized successfully")
		return NewMemoryStore(dim), nil
	case VectorStoreTypeMilvus:
		store, err := InitializeMilvusStore(ctx)
		if err != nil {
			return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to initialize Milvus vector store: %v", err)
		}
		g.Log().Info(ctx, "Milvus vector store initialized successfully")
		return store, nil
	case VectorStoreTypePostgreSQL:
		store, err := InitializePostgresStore(ctx)
		if err != nil {
			return nil, errors.Newf(errors.ErrVectorStoreInit, "failed to initialize PostgreSQL vector store: %v", err)
		}
		g.Log().Info(ctx, "PostgreSQL vector store initialized successfully")
		return store, nil
	default:
		return nil, errors.Newf(errors.ErrInvalidParameter, "unsupported vector store type: %s. Supported types: memory, milvus, pgvector", storeType)
	}
}

// NewVectorStore builds a store from an explicit configuration, bypassing
// the global config. Useful for tests and embedding the library.
func NewVectorStore(config *VectorStoreConfig) (VectorStore, error) {
	if config == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "config cannot be nil")
	}
	switch config.Type {
	case VectorStoreTypeMemory:
		dim := config.Dimension
		if dim <= 0 {
			dim = common.DefaultDimension
		}
		return NewMemoryStore(dim), nil
	case VectorStoreTypeMilvus:
		return NewMilvusStore(config)
	case VectorStoreTypePostgreSQL:
		return NewPostgresStore(config)
	default:
		return nil, errors.Newf(errors.ErrInvalidParameter, "unsupported vector store type: %s", config.Type)
	}
}
