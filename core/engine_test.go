package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugo/edugen/core/client"
	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/orchestrator"
	"github.com/edugo/edugen/core/retriever"
	"github.com/edugo/edugen/core/vector_store"
	"github.com/edugo/edugen/pkg/schema"
)

type echoChat struct{}

func (echoChat) Complete(ctx context.Context, req *client.CompletionRequest) (*client.Completion, error) {
	return &client.Completion{Content: "Plants need sunlight for photosynthesis."}, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dim := 8

	engine, err := NewEngine(context.Background(), &EngineDeps{
		VectorStore: vector_store.NewMemoryStore(dim),
		Embedder:    embedding.NewSynthetic(dim),
		Chat:        echoChat{},
	},
		&config.Config{Temperature: 0.3, Dimension: dim},
		&config.RetrieverConfig{IndexName: "materials", TopK: 5, MaxContextTokens: 800},
		&config.IndexerConfig{IndexName: "materials", ChunkSize: 500, ChunkOverlap: 100, BatchSize: 5},
	)
	require.NoError(t, err)
	return engine
}

func TestEngineIngestThenRetrieve(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	content := strings.TrimSpace(strings.Repeat("plants absorb sunlight with their leaves ", 8))
	report, err := engine.Orchestrator.IndexContent(ctx, "", []*schema.Document{{
		ID:      "science-doc",
		Content: content,
		MetaData: map[string]any{
			common.MetaSubject: "Science",
			common.MetaGrade:   "5",
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Chunks)

	res, err := engine.Retriever.Retrieve(ctx, &retriever.RetrieveReq{
		Query:  "plants and sunlight",
		Filter: map[string]any{common.MetaSubject: "Science"},
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "science-doc", res.Documents[0].ID)
	assert.Contains(t, res.Context, "[Subject: Science | Grade: 5]")
	assert.Contains(t, res.Context, "plants absorb sunlight")
}

func TestEngineQueryEndToEnd(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	_, err := engine.Orchestrator.IndexContent(ctx, "", []*schema.Document{{
		ID:       "doc-1",
		Content:  "Photosynthesis is how plants turn light into energy.",
		MetaData: map[string]any{common.MetaSubject: "Science"},
	}})
	require.NoError(t, err)

	res, err := engine.Orchestrator.Query(ctx, &orchestrator.QueryReq{Question: "How do plants get energy?"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "doc-1", res.Sources[0].ID)
}

func TestNewEngineRejectsMissingDeps(t *testing.T) {
	_, err := NewEngine(context.Background(), nil, &config.Config{}, &config.RetrieverConfig{}, &config.IndexerConfig{})
	assert.Error(t, err)

	_, err = NewEngine(context.Background(), &EngineDeps{}, &config.Config{}, &config.RetrieverConfig{}, &config.IndexerConfig{})
	assert.Error(t, err)
}
