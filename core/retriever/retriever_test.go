package retriever

import (
	"context"
	"fmt"
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

type fixedEmbedder struct {
	vector   []float32
	degraded bool
}

func (f *fixedEmbedder) Embed(ctx context.Context, texts []string) (*embedding.Result, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return &embedding.Result{Vectors: vectors, Degraded: f.degraded}, nil
}

func (f *fixedEmbedder) Dimension() int { return len(f.vector) }

func testConfig() *config.RetrieverConfig {
	return &config.RetrieverConfig{
		IndexName:        "materials",
		TopK:             5,
		MaxContextTokens: 1000,
	}
}

func seededStore(t *testing.T) vector_store.VectorStore {
	t.Helper()
	ctx := context.Background()
	store := vector_store.NewMemoryStore(3)
	require.NoError(t, store.CreateIndex(ctx, "materials", 3, common.MetricCosine))
	require.NoError(t, store.Upsert(ctx, "materials", []vector_store.Record{
		{
			ID:     "doc-1-chunk-0",
			Values: []float32{1, 0, 0},
			Metadata: map[string]any{
				common.MetaContent: "Plants use sunlight to produce energy through photosynthesis.",
				common.MetaSubject: "Science",
				common.MetaGrade:   "5",
			},
		},
		{
			ID:     "doc-2-chunk-0",
			Values: []float32{0.5, 0.5, 0},
			Metadata: map[string]any{
				common.MetaContent: "Fractions represent parts of a whole number.",
				common.MetaSubject: "Math",
				common.MetaGrade:   "5",
			},
		},
		{
			ID:     "doc-3-chunk-0",
			Values: []float32{0, 0, 1},
			Metadata: map[string]any{
				common.MetaContent: "The water cycle moves water between land, sea and air.",
				common.MetaSubject: "Science",
				common.MetaGrade:   "6",
			},
		},
	}))
	return store
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}}, testConfig())
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), &RetrieveReq{Query: ""})
	assert.Error(t, err)

	_, err = r.Retrieve(context.Background(), nil)
	assert.Error(t, err)
}

func TestRetrieveRanksAndAssembles(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}}, testConfig())
	require.NoError(t, err)

	res, err := r.Retrieve(context.Background(), &RetrieveReq{Query: "how do plants get energy"})
	require.NoError(t, err)
	require.Len(t, res.Documents, 3)

	assert.Equal(t, "doc-1-chunk-0", res.Documents[0].ID)
	assert.Equal(t, "doc-2-chunk-0", res.Documents[1].ID)
	for i := 1; i < len(res.Documents); i++ {
		assert.GreaterOrEqual(t, res.Documents[i-1].Score, res.Documents[i].Score)
	}

	assert.Contains(t, res.Context, "[Subject: Science | Grade: 5]")
	assert.Contains(t, res.Context, "photosynthesis")
	assert.False(t, res.Degraded)
	// content lives on the document, not in its metadata copy
	assert.Equal(t, "Plants use sunlight to produce energy through photosynthesis.", res.Documents[0].Content)
	assert.NotContains(t, res.Documents[0].MetaData, common.MetaContent)
}

func TestRetrieveTopKOverride(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}}, testConfig())
	require.NoError(t, err)

	res, err := r.Retrieve(context.Background(), &RetrieveReq{
		Query: "plants",
		TopK:  common.Of(1),
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "doc-1-chunk-0", res.Documents[0].ID)
}

func TestRetrieveFilter(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}}, testConfig())
	require.NoError(t, err)

	res, err := r.Retrieve(context.Background(), &RetrieveReq{
		Query:  "plants and sunlight",
		Filter: map[string]any{common.MetaSubject: "Science"},
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	for _, doc := range res.Documents {
		assert.Equal(t, "Science", doc.MetaData[common.MetaSubject])
	}
	assert.NotContains(t, res.Context, "Fractions")
}

func TestRetrieveDegradedPropagates(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}, degraded: true}, testConfig())
	require.NoError(t, err)

	res, err := r.Retrieve(context.Background(), &RetrieveReq{Query: "plants"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.Documents)
}

func TestRetrieveDoesNotMutateRequest(t *testing.T) {
	r, err := NewRetriever(seededStore(t), &fixedEmbedder{vector: []float32{1, 0, 0}}, testConfig())
	require.NoError(t, err)

	req := &RetrieveReq{Query: "plants"}
	_, err = r.Retrieve(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, req.TopK)
	assert.Nil(t, req.MaxContextTokens)
}

func TestAssembleContextBudget(t *testing.T) {
	long := strings.Repeat("word ", 200) + "End of the first passage."
	docs := []*schema.Document{
		{ID: "a", Content: long},
		{ID: "b", Content: "This block must not appear."},
	}

	out := AssembleContext(docs, 100)
	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, common.EstimateTokens(out), 100)
	assert.NotContains(t, out, "must not appear")
}

func TestAssembleContextManySmallBlocks(t *testing.T) {
	// Each block alone floors to 2 estimated tokens; the separators between
	// them only count against the budget on the joined result.
	docs := make([]*schema.Document, 0, 40)
	for i := 0; i < 40; i++ {
		docs = append(docs, &schema.Document{ID: fmt.Sprintf("d-%d", i), Content: "nine char"})
	}

	out := AssembleContext(docs, 30)
	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, common.EstimateTokens(out), 30)
}

func TestAssembleContextSkipsEmptyDocs(t *testing.T) {
	docs := []*schema.Document{
		{ID: "a", Content: ""},
		nil,
		{ID: "b", Content: "Visible text."},
	}
	out := AssembleContext(docs, 100)
	assert.Equal(t, "Visible text.", out)
}

func TestAssembleContextZeroBudget(t *testing.T) {
	docs := []*schema.Document{{ID: "a", Content: "text"}}
	assert.Equal(t, "", AssembleContext(docs, 0))
}

func TestRenderHeader(t *testing.T) {
	t.Run("full header", func(t *testing.T) {
		h := renderHeader(map[string]any{
			common.MetaSubject: "Science",
			common.MetaGrade:   "5",
			common.MetaType:    "textbook",
			common.MetaTags:    []string{"biology", "plants"},
		})
		assert.Equal(t, "[Subject: Science | Grade: 5 | Type: textbook | Tags: biology, plants]", h)
	})

	t.Run("tags after json round trip", func(t *testing.T) {
		h := renderHeader(map[string]any{
			common.MetaTags: []any{"biology", "plants"},
		})
		assert.Equal(t, "[Tags: biology, plants]", h)
	})

	t.Run("no relevant keys", func(t *testing.T) {
		assert.Equal(t, "", renderHeader(map[string]any{"source": "upload"}))
		assert.Equal(t, "", renderHeader(nil))
	})
}
