package core

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/edugo/edugen/core/cache"
	"github.com/edugo/edugen/core/client"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/core/indexer"
	"github.com/edugo/edugen/core/orchestrator"
	"github.com/edugo/edugen/core/retriever"
	"github.com/edugo/edugen/core/vector_store"
)

// Engine is the explicitly constructed entry point of the generation core.
// Every dependency is injected; there is no hidden global state, so tests
// can run the whole pipeline against fakes.
type Engine struct {
	Orchestrator *orchestrator.Orchestrator
	Retriever    *retriever.Retriever
	Indexer      *indexer.Indexer
	VectorStore  vector_store.VectorStore
	conf         *config.Config
}

// EngineDeps holds the injectable components of an Engine. Nil fields are
// built from configuration by InitializeEngine.
type EngineDeps struct {
	VectorStore vector_store.VectorStore
	Embedder    embedding.Provider
	Chat        client.ChatClient
	Cache       *cache.ResultCache
}

// GetConfig returns the engine configuration
func (e *Engine) GetConfig() *config.Config {
	return e.conf
}

// NewEngine wires an Engine from explicit dependencies
func NewEngine(ctx context.Context, deps *EngineDeps, conf *config.Config, retrieverConf *config.RetrieverConfig, indexerConf *config.IndexerConfig) (*Engine, error) {
	if deps == nil || deps.VectorStore == nil || deps.Embedder == nil || deps.Chat == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "engine dependencies cannot be nil")
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewResultCache()
	}

	ret, err := retriever.NewRetriever(deps.VectorStore, deps.Embedder, retrieverConf)
	if err != nil {
		return nil, err
	}
	idx, err := indexer.NewIndexer(deps.Embedder, deps.VectorStore, indexerConf)
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.NewOrchestrator(ret, deps.Chat, deps.Cache, idx, conf)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Orchestrator: orch,
		Retriever:    ret,
		Indexer:      idx,
		VectorStore:  deps.VectorStore,
		conf:         conf,
	}, nil
}

// InitializeEngine builds the production Engine from config.yaml: the
// configured vector store backend, the embedding provider behind its
// synthetic fallback, and the chat client behind its placeholder fallback.
func InitializeEngine(ctx context.Context) (*Engine, error) {
	conf := config.Load(ctx)

	store, err := vector_store.InitializeVectorStore(ctx)
	if err != nil {
		return nil, err
	}

	// missing provider credentials start the engine in degraded mode instead
	// of failing the boot; ValidateConfiguration has already warned
	var embedder embedding.Provider
	if realEmbedder, err := embedding.NewOpenAIProvider(conf); err != nil {
		g.Log().Warningf(ctx, "Embedding provider not configured, running on synthetic vectors: %v", err)
		embedder = embedding.NewSynthetic(conf.GetDimension())
	} else {
		embedder = embedding.NewFallback(realEmbedder, embedding.NewSynthetic(conf.GetDimension()))
	}

	var chat client.ChatClient
	if realChat, err := client.NewOpenAIClient(conf.ChatAPIKey, conf.ChatBaseURL, conf.ChatModel); err != nil {
		g.Log().Warningf(ctx, "Chat provider not configured, generation will return placeholders: %v", err)
		chat = client.Unavailable{}
	} else {
		chat = client.NewFallback(realChat)
	}

	engine, err := NewEngine(ctx, &EngineDeps{
		VectorStore: store,
		Embedder:    embedder,
		Chat:        chat,
		Cache:       cache.NewResultCache(),
	}, conf, config.LoadRetriever(ctx), config.LoadIndexer(ctx))
	if err != nil {
		return nil, err
	}

	g.Log().Infof(ctx, "Generation engine initialized (embedding model: %s, chat model: %s)",
		conf.EmbeddingModel, conf.ChatModel)
	return engine, nil
}
