package indexer

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/core/processor"
	"github.com/edugo/edugen/core/vector_store"
	"github.com/edugo/edugen/pkg/schema"
)

// Indexer runs the ingestion pipeline: chunk documents, embed the chunks in
// bounded sequential batches, upsert the vectors with chunk linkage metadata.
type Indexer struct {
	embedder embedding.Provider
	store    vector_store.VectorStore
	conf     *config.IndexerConfig
}

// IndexReport summarizes one ingestion call
type IndexReport struct {
	Documents int
	Chunks    int
	Degraded  bool // at least one embedding batch used the synthetic fallback
}

func NewIndexer(embedder embedding.Provider, store vector_store.VectorStore, conf *config.IndexerConfig) (*Indexer, error) {
	if embedder == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding provider cannot be nil")
	}
	if store == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "vector store cannot be nil")
	}
	if conf == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "indexer config cannot be nil")
	}
	return &Indexer{embedder: embedder, store: store, conf: conf}, nil
}

// IndexDocuments ingests documents into indexName. An empty indexName targets
// the configured default. Documents are processed one at a time; within each
// document, embedding batches run sequentially to bound provider load.
func (x *Indexer) IndexDocuments(ctx context.Context, indexName string, docs []*schema.Document) (*IndexReport, error) {
	if len(docs) == 0 {
		return &IndexReport{}, nil
	}
	if indexName == "" {
		indexName = x.conf.IndexName
	}

	report := &IndexReport{}
	for _, doc := range docs {
		if doc == nil || doc.Content == "" {
			return nil, errors.New(errors.ErrDocumentEmpty, "document has no content")
		}
		if doc.ID == "" {
			// raw text synthesized into a document by a collaborator
			doc.ID = uuid.NewString()
		}

		chunks, err := x.split(ctx, doc)
		if err != nil {
			return nil, err
		}

		degraded, err := x.indexChunks(ctx, indexName, chunks)
		if err != nil {
			return nil, err
		}

		report.Documents++
		report.Chunks += len(chunks)
		report.Degraded = report.Degraded || degraded
	}

	g.Log().Infof(ctx, "Indexed %d documents as %d chunks into '%s' (degraded=%v)",
		report.Documents, report.Chunks, indexName, report.Degraded)
	return report, nil
}

// split picks the chunking strategy from document metadata: markdown content
// goes through the structure-aware splitter, everything else through the
// word window.
func (x *Indexer) split(ctx context.Context, doc *schema.Document) ([]*schema.Document, error) {
	if format, ok := doc.MetaData[common.MetaFormat].(string); ok && format == common.FormatMarkdown {
		return processor.SplitStructured(ctx, doc, x.conf.ChunkSize, x.conf.ChunkOverlap)
	}
	return processor.Chunk(doc, x.conf.ChunkSize, x.conf.ChunkOverlap)
}

func (x *Indexer) indexChunks(ctx context.Context, indexName string, chunks []*schema.Document) (bool, error) {
	batchSize := x.conf.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	degraded := false
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embRes, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return degraded, errors.Newf(errors.ErrIndexingFailed, "failed to embed chunk batch: %v", err)
		}
		if len(embRes.Vectors) != len(batch) {
			return degraded, errors.Newf(errors.ErrIndexingFailed,
				"embedding count mismatch: %d texts, %d vectors", len(batch), len(embRes.Vectors))
		}
		degraded = degraded || embRes.Degraded

		records := make([]vector_store.Record, len(batch))
		for i, chunk := range batch {
			metadata := chunk.CloneMetaData()
			metadata[common.MetaContent] = chunk.Content
			records[i] = vector_store.Record{
				ID:       chunk.ID,
				Values:   embRes.Vectors[i],
				Metadata: metadata,
			}
		}
		if err := x.store.Upsert(ctx, indexName, records); err != nil {
			return degraded, errors.Newf(errors.ErrIndexingFailed, "failed to upsert chunk batch: %v", err)
		}
	}
	return degraded, nil
}

// DeleteDocument removes every chunk of a previously indexed document
func (x *Indexer) DeleteDocument(ctx context.Context, indexName, documentID string, chunkCount int) error {
	if indexName == "" {
		indexName = x.conf.IndexName
	}
	if documentID == "" {
		return errors.New(errors.ErrInvalidParameter, "document id cannot be empty")
	}

	ids := make([]string, 0, chunkCount+1)
	// an unsplit document keeps its own id; split ones use chunk ids
	ids = append(ids, documentID)
	for i := 0; i < chunkCount; i++ {
		ids = append(ids, processor.ChunkID(documentID, i))
	}
	return x.store.Delete(ctx, indexName, ids)
}
