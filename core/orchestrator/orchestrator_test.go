package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugo/edugen/core/cache"
	"github.com/edugo/edugen/core/client"
	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/embedding"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/core/indexer"
	"github.com/edugo/edugen/core/retriever"
	"github.com/edugo/edugen/core/vector_store"
	"github.com/edugo/edugen/pkg/schema"
)

type scriptedChat struct {
	content string
	err     error
	calls   int
	lastReq *client.CompletionRequest
}

func (s *scriptedChat) Complete(ctx context.Context, req *client.CompletionRequest) (*client.Completion, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &client.Completion{Content: s.content}, nil
}

type unitEmbedder struct {
	dim      int
	degraded bool
}

func (u *unitEmbedder) Dimension() int { return u.dim }

func (u *unitEmbedder) Embed(ctx context.Context, texts []string) (*embedding.Result, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, u.dim)
		v[0] = 1
		vectors[i] = v
	}
	return &embedding.Result{Vectors: vectors, Degraded: u.degraded}, nil
}

type failingEmbedder struct{ dim int }

func (f *failingEmbedder) Dimension() int { return f.dim }

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) (*embedding.Result, error) {
	return nil, errors.New(errors.ErrProviderUnavailable, "embedding endpoint unreachable")
}

func newTestOrchestrator(t *testing.T, chat client.ChatClient) *Orchestrator {
	t.Helper()
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	require.NoError(t, store.CreateIndex(ctx, "materials", 4, common.MetricCosine))
	require.NoError(t, store.Upsert(ctx, "materials", []vector_store.Record{{
		ID:     "doc-1",
		Values: []float32{1, 0, 0, 0},
		Metadata: map[string]any{
			common.MetaContent: "Photosynthesis converts light into chemical energy.",
			common.MetaSubject: "Science",
			common.MetaGrade:   "5",
		},
	}}))

	emb := &unitEmbedder{dim: 4}
	retrieverConf := &config.RetrieverConfig{IndexName: "materials", TopK: 5, MaxContextTokens: 500}
	ret, err := retriever.NewRetriever(store, emb, retrieverConf)
	require.NoError(t, err)

	idx, err := indexer.NewIndexer(emb, store, &config.IndexerConfig{
		IndexName: "materials", ChunkSize: 50, ChunkOverlap: 10, BatchSize: 5,
	})
	require.NoError(t, err)

	o, err := NewOrchestrator(ret, chat, cache.NewResultCache(), idx, &config.Config{Temperature: 0.2})
	require.NoError(t, err)
	return o
}

func TestGenerateLessonPlanParsesAndCaches(t *testing.T) {
	chat := &scriptedChat{content: `{
		"title": "Photosynthesis Basics",
		"subject": "Science",
		"grade": "5",
		"duration_minutes": 45,
		"objectives": ["explain photosynthesis"],
		"activities": [{"name": "Warm-up", "description": "Discuss plants", "duration_minutes": 10}],
		"materials": ["leaf samples"],
		"assessment_ideas": "Exit ticket"
	}`}
	o := newTestOrchestrator(t, chat)
	req := &LessonPlanReq{Topic: "Photosynthesis", Subject: "Science", Grade: "5", DurationMinutes: 45}

	res, err := o.GenerateLessonPlan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis Basics", res.Plan.Title)
	assert.Len(t, res.Plan.Activities, 1)
	assert.False(t, res.Degraded)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "doc-1", res.Sources[0].ID)

	// identical request is served from the cache
	res2, err := o.GenerateLessonPlan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, res.Plan.Title, res2.Plan.Title)
	assert.Equal(t, 1, chat.calls)
}

func TestGenerateLessonPlanDegraded(t *testing.T) {
	broken := &scriptedChat{err: errors.New(errors.ErrProviderUnavailable, "connection refused")}
	o := newTestOrchestrator(t, client.NewFallback(broken))
	req := &LessonPlanReq{Topic: "Photosynthesis", Subject: "Science", Grade: "5"}

	res, err := o.GenerateLessonPlan(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Plan.Title, "Photosynthesis")
	assert.Contains(t, res.Plan.Title, "[Unavailable]")

	// degraded results are not cached
	_, err = o.GenerateLessonPlan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, broken.calls)
}

func TestGenerateLessonPlanParseFailure(t *testing.T) {
	chat := &scriptedChat{content: "sorry, I cannot help with that"}
	o := newTestOrchestrator(t, chat)

	res, err := o.GenerateLessonPlan(context.Background(), &LessonPlanReq{Topic: "Fractions", Subject: "Math"})
	require.NoError(t, err)
	assert.Equal(t, "Fractions", res.Plan.Title)
	assert.Empty(t, res.Plan.Activities)
}

func TestGenerateFeedbackNotCached(t *testing.T) {
	chat := &scriptedChat{content: `{"summary": "Good effort", "strengths": ["clear writing"], "improvements": [], "next_steps": []}`}
	o := newTestOrchestrator(t, chat)
	req := &FeedbackReq{StudentWork: "My essay about plants.", Assignment: "Plant essay", Subject: "Science", Grade: "5"}

	res, err := o.GenerateFeedback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Good effort", res.Feedback.Summary)

	_, err = o.GenerateFeedback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, chat.calls)
}

func TestGenerateDifferentiatedMaterials(t *testing.T) {
	chat := &scriptedChat{content: `{
		"topic": "Fractions",
		"variants": [
			{"level": "basic", "content": "halves and quarters", "tips": []},
			{"level": "intermediate", "content": "equivalent fractions", "tips": []},
			{"level": "advanced", "content": "operations on fractions", "tips": []}
		]
	}`}
	o := newTestOrchestrator(t, chat)

	res, err := o.GenerateDifferentiatedMaterials(context.Background(), &MaterialsReq{Topic: "Fractions", Subject: "Math", Grade: "4"})
	require.NoError(t, err)
	require.Len(t, res.Materials.Variants, 3)
	assert.Equal(t, "basic", res.Materials.Variants[0].Level)
	assert.False(t, res.Degraded)
}

func TestRecommendTasksDowngradesMalformed(t *testing.T) {
	chat := &scriptedChat{content: `{
		"recommendations": [
			{"type": "lesson_plan", "title": "Plan a photosynthesis lesson", "priority": 1},
			{"type": "homework", "title": "Unknown kind", "reason": "provider invented a type"},
			{"type": "assessment", "title": "   "}
		]
	}`}
	o := newTestOrchestrator(t, chat)

	res, err := o.RecommendTasks(context.Background(), &RecommendReq{Subject: "Science", Grade: "5"})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, RecommendationLessonPlan, res.Recommendations[0].Type)
	assert.Equal(t, RecommendationSuggestion, res.Recommendations[1].Type)
	assert.Equal(t, "Unknown kind", res.Recommendations[1].Title)
}

func TestRecommendTasksBareArray(t *testing.T) {
	chat := &scriptedChat{content: `[{"type": "resource", "title": "Leaf diagram handout"}]`}
	o := newTestOrchestrator(t, chat)

	res, err := o.RecommendTasks(context.Background(), &RecommendReq{Subject: "Science"})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, RecommendationResource, res.Recommendations[0].Type)
}

func TestQueryReturnsAnswerAndSources(t *testing.T) {
	chat := &scriptedChat{content: "Plants convert light into chemical energy."}
	o := newTestOrchestrator(t, chat)

	res, err := o.Query(context.Background(), &QueryReq{Question: "How do plants get energy?"})
	require.NoError(t, err)
	assert.Equal(t, "Plants convert light into chemical energy.", res.Answer)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "doc-1", res.Sources[0].ID)
	assert.False(t, res.Degraded)

	// second identical query hits the cache
	_, err = o.Query(context.Background(), &QueryReq{Question: "How do plants get energy?"})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
}

func TestQueryJSONMode(t *testing.T) {
	chat := &scriptedChat{content: "```json" + `
{"answer": "Through photosynthesis."}
` + "```"}
	o := newTestOrchestrator(t, chat)

	res, err := o.Query(context.Background(), &QueryReq{Question: "How?", JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, "Through photosynthesis.", res.Answer)
	require.NotNil(t, chat.lastReq)
	assert.True(t, chat.lastReq.JSONMode)
}

func TestQueryDegradedStillAnswers(t *testing.T) {
	broken := &scriptedChat{err: errors.New(errors.ErrProviderUnavailable, "timeout")}
	o := newTestOrchestrator(t, client.NewFallback(broken))

	res, err := o.Query(context.Background(), &QueryReq{Question: "How do plants get energy?"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, degradedNotice, res.Answer)
	assert.NotEmpty(t, res.Sources)
}

func TestQueryAnswersWithoutGroundingWhenRetrievalFails(t *testing.T) {
	ctx := context.Background()
	store := vector_store.NewMemoryStore(4)
	chat := &scriptedChat{content: "Photosynthesis converts light into chemical energy."}

	emb := &failingEmbedder{dim: 4}
	ret, err := retriever.NewRetriever(store, emb, &config.RetrieverConfig{IndexName: "materials", TopK: 5, MaxContextTokens: 500})
	require.NoError(t, err)
	idx, err := indexer.NewIndexer(emb, store, &config.IndexerConfig{
		IndexName: "materials", ChunkSize: 50, ChunkOverlap: 10, BatchSize: 5,
	})
	require.NoError(t, err)
	o, err := NewOrchestrator(ret, chat, cache.NewResultCache(), idx, &config.Config{Temperature: 0.2})
	require.NoError(t, err)

	res, err := o.Query(ctx, &QueryReq{Question: "What is photosynthesis?"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Sources)
	assert.Equal(t, "Photosynthesis converts light into chemical energy.", res.Answer)
	assert.Equal(t, 1, chat.calls)

	// degraded answers are not cached
	_, err = o.Query(ctx, &QueryReq{Question: "What is photosynthesis?"})
	require.NoError(t, err)
	assert.Equal(t, 2, chat.calls)
}

func TestIndexContentRoundTrip(t *testing.T) {
	chat := &scriptedChat{content: "Water evaporates, condenses and falls as rain."}
	o := newTestOrchestrator(t, chat)

	report, err := o.IndexContent(context.Background(), "", []*schema.Document{{
		ID:       "doc-water",
		Content:  "The water cycle moves water between land, sea and air.",
		MetaData: map[string]any{common.MetaSubject: "Science", common.MetaGrade: "5"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Documents)

	res, err := o.Query(context.Background(), &QueryReq{Question: "What is the water cycle?"})
	require.NoError(t, err)
	ids := make([]string, 0, len(res.Sources))
	for _, s := range res.Sources {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "doc-water")
}

func TestInvalidRequests(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedChat{content: "{}"})
	ctx := context.Background()

	_, err := o.GenerateLessonPlan(ctx, nil)
	assert.Error(t, err)
	_, err = o.GenerateAssessment(ctx, &AssessmentReq{})
	assert.Error(t, err)
	_, err = o.GenerateFeedback(ctx, &FeedbackReq{})
	assert.Error(t, err)
	_, err = o.Query(ctx, &QueryReq{})
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	})
	t.Run("fenced", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	})
	t.Run("prose around object", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, extractJSON(`Here you go: {"a":1} Hope this helps!`))
	})
	t.Run("bare array", func(t *testing.T) {
		assert.Equal(t, `[1,2]`, extractJSON("some text [1,2] trailing"))
	})
	t.Run("no payload", func(t *testing.T) {
		assert.Equal(t, "", extractJSON("no structured data here"))
	})
}
