package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/vector_store"
	"github.com/edugo/edugen/pkg/schema"
)

type countingEmbedder struct {
	dim        int
	calls      int
	batchSizes []int
	degraded   bool
}

func (c *countingEmbedder) Dimension() int { return c.dim }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) (*embedding.Result, error) {
	c.calls++
	c.batchSizes = append(c.batchSizes, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, c.dim)
		v[0] = 1
		vectors[i] = v
	}
	return &embedding.Result{Vectors: vectors, Degraded: c.degraded}, nil
}

func testIndexerConfig() *config.IndexerConfig {
	return &config.IndexerConfig{
		IndexName:    "materials",
		ChunkSize:    50,
		ChunkOverlap: 10,
		BatchSize:    5,
	}
}

func TestIndexDocumentsSmallDoc(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	emb := &countingEmbedder{dim: 4}
	x, err := NewIndexer(emb, store, testIndexerConfig())
	require.NoError(t, err)

	report, err := x.IndexDocuments(ctx, "", []*schema.Document{{
		ID:      "doc-1",
		Content: "Plants use sunlight to make food.",
		MetaData: map[string]any{
			common.MetaSubject: "Science",
			common.MetaGrade:   "5",
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Chunks)
	assert.False(t, report.Degraded)

	matches, err := store.Query(ctx, "materials", []float32{1, 0, 0, 0}, 5, nil, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-1", matches[0].ID)
	assert.Equal(t, "Plants use sunlight to make food.", matches[0].Metadata[common.MetaContent])
	assert.Equal(t, "Science", matches[0].Metadata[common.MetaSubject])
}

func TestIndexDocumentsChunksAndBatches(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	emb := &countingEmbedder{dim: 4}
	x, err := NewIndexer(emb, store, testIndexerConfig())
	require.NoError(t, err)

	// 400 words, window 50 step 40: 10 chunks, two embed batches of 5
	content := strings.TrimSpace(strings.Repeat("word ", 400))
	report, err := x.IndexDocuments(ctx, "materials", []*schema.Document{{
		ID:       "doc-long",
		Content:  content,
		MetaData: map[string]any{common.MetaSubject: "Math"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 10, report.Chunks)
	assert.Equal(t, []int{5, 5}, emb.batchSizes)

	matches, err := store.Query(ctx, "materials", []float32{1, 0, 0, 0}, 20, nil, true)
	require.NoError(t, err)
	require.Len(t, matches, 10)
	ids := make(map[string]bool, len(matches))
	for _, m := range matches {
		ids[m.ID] = true
		assert.Equal(t, "doc-long", m.Metadata[common.MetaParentDocumentID])
	}
	assert.True(t, ids["doc-long-chunk-0"])
	assert.True(t, ids["doc-long-chunk-9"])
}

func TestIndexDocumentsDegradedPropagates(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	x, err := NewIndexer(&countingEmbedder{dim: 4, degraded: true}, store, testIndexerConfig())
	require.NoError(t, err)

	report, err := x.IndexDocuments(ctx, "", []*schema.Document{{
		ID:      "doc-1",
		Content: "Short text.",
	}})
	require.NoError(t, err)
	assert.True(t, report.Degraded)
}

func TestIndexDocumentsEmptyInput(t *testing.T) {
	x, err := NewIndexer(&countingEmbedder{dim: 4}, vector_store.NewMemoryStore(4), testIndexerConfig())
	require.NoError(t, err)

	report, err := x.IndexDocuments(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Documents)
}

func TestIndexDocumentsAssignsMissingID(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	x, err := NewIndexer(&countingEmbedder{dim: 4}, store, testIndexerConfig())
	require.NoError(t, err)

	doc := &schema.Document{Content: "Raw pasted text without an identifier."}
	_, err = x.IndexDocuments(ctx, "", []*schema.Document{doc})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	matches, err := store.Query(ctx, "materials", []float32{1, 0, 0, 0}, 5, nil, false)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, doc.ID, matches[0].ID)
}

func TestIndexDocumentsEmptyDocumentRejected(t *testing.T) {
	x, err := NewIndexer(&countingEmbedder{dim: 4}, vector_store.NewMemoryStore(4), testIndexerConfig())
	require.NoError(t, err)

	_, err = x.IndexDocuments(context.Background(), "", []*schema.Document{{ID: "empty"}})
	assert.Error(t, err)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	emb := &countingEmbedder{dim: 4}
	x, err := NewIndexer(emb, store, testIndexerConfig())
	require.NoError(t, err)

	content := strings.TrimSpace(strings.Repeat("word ", 120))
	report, err := x.IndexDocuments(ctx, "", []*schema.Document{{ID: "doc-1", Content: content}})
	require.NoError(t, err)
	require.Equal(t, 3, report.Chunks)

	require.NoError(t, x.DeleteDocument(ctx, "", "doc-1", report.Chunks))

	matches, err := store.Query(ctx, "materials", []float32{1, 0, 0, 0}, 10, nil, false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
