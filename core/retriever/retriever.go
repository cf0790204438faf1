package retriever

import (
	"context"
	"sort"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/core/vector_store"
	"github.com/edugo/edugen/pkg/schema"
)

// Retriever turns a text query into a ranked, budgeted context block by
// embedding the query and searching a vector index.
type Retriever struct {
	store    vector_store.VectorStore
	embedder embedding.Provider
	conf     *config.RetrieverConfig
}

func NewRetriever(store vector_store.VectorStore, embedder embedding.Provider, conf *config.RetrieverConfig) (*Retriever, error) {
	if store == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "vector store cannot be nil")
	}
	if embedder == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding provider cannot be nil")
	}
	if conf == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "retriever config cannot be nil")
	}
	return &Retriever{store: store, embedder: embedder, conf: conf}, nil
}

// Retrieve executes a retrieval round trip for the request
func (r *Retriever) Retrieve(ctx context.Context, req *RetrieveReq) (*RetrieveResult, error) {
	if req == nil || req.Query == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "query cannot be empty")
	}

	// fill unset parameters from the configured defaults, on a copy so the
	// caller's request is not mutated
	req = req.Copy()
	if req.TopK == nil {
		req.TopK = &r.conf.TopK
	}
	if req.MaxContextTokens == nil {
		req.MaxContextTokens = &r.conf.MaxContextTokens
	}
	indexName := req.IndexName
	if indexName == "" {
		indexName = r.conf.IndexName
	}

	embRes, err := r.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, errors.Newf(errors.ErrRetrievalFailed, "failed to embed query: %v", err)
	}
	if len(embRes.Vectors) != 1 {
		return nil, errors.Newf(errors.ErrRetrievalFailed, "expected 1 query vector, got %d", len(embRes.Vectors))
	}

	matches, err := r.store.Query(ctx, indexName, embRes.Vectors[0], *req.TopK, req.Filter, true)
	if err != nil {
		return nil, errors.Newf(errors.ErrRetrievalFailed, "vector search failed: %v", err)
	}

	docs := make([]*schema.Document, 0, len(matches))
	for _, match := range matches {
		docs = append(docs, matchToDocument(match))
	}

	// stores already rank by similarity; keep ordering guarantees local
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})

	return &RetrieveResult{
		Query:     req.Query,
		Documents: docs,
		Context:   AssembleContext(docs, *req.MaxContextTokens),
		Degraded:  embRes.Degraded,
	}, nil
}

func matchToDocument(match vector_store.Match) *schema.Document {
	doc := &schema.Document{
		ID:    match.ID,
		Score: match.Score,
	}
	if match.Metadata != nil {
		if content, ok := match.Metadata[common.MetaContent].(string); ok {
			doc.Content = content
		}
		metadata := make(map[string]any, len(match.Metadata))
		for k, v := range match.Metadata {
			if k == common.MetaContent {
				continue
			}
			metadata[k] = v
		}
		doc.MetaData = metadata
	}
	return doc
}
