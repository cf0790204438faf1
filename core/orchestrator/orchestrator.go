package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"

	"github.com/edugo/edugen/core/cache"
	"github.com/edugo/edugen/core/client"
	"github.com/edugo/edugen/core/common"
	"github.com/edugo/edugen/core/config"
	"github.com/edugo/edugen/core/errors"
	"github.com/edugo/edugen/core/indexer"
	"github.com/edugo/edugen/core/retriever"
	"github.com/edugo/edugen/pkg/schema"
)

// Cache lifetimes per task. Free-form answers go stale quickly; expensive
// structured generations are kept much longer. Feedback is never cached
// because every submission is unique.
const (
	queryTTL      = 5 * time.Minute
	lessonPlanTTL = time.Hour
	assessmentTTL = time.Hour
	materialsTTL  = 24 * time.Hour
	recommendTTL  = 30 * time.Minute
)

const degradedNotice = "The generation service is temporarily unavailable. This is a placeholder result; please retry later."

// Orchestrator drives every generation request: cache check, retrieval,
// prompt rendering, completion, structured parsing, cache write. Completion
// outages surface as clearly labeled placeholder results, never as errors.
type Orchestrator struct {
	retriever *retriever.Retriever
	chat      client.ChatClient
	cache     *cache.ResultCache
	indexer   *indexer.Indexer
	conf      *config.Config
}

func NewOrchestrator(ret *retriever.Retriever, chat client.ChatClient, resultCache *cache.ResultCache, idx *indexer.Indexer, conf *config.Config) (*Orchestrator, error) {
	if ret == nil || chat == nil || resultCache == nil || idx == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "orchestrator dependencies cannot be nil")
	}
	if conf == nil {
		return nil, errors.New(errors.ErrConfiguration, "engine config cannot be nil")
	}
	return &Orchestrator{
		retriever: ret,
		chat:      chat,
		cache:     resultCache,
		indexer:   idx,
		conf:      conf,
	}, nil
}

// GenerateLessonPlan produces a structured lesson plan grounded in the corpus
func (o *Orchestrator) GenerateLessonPlan(ctx context.Context, req *LessonPlanReq) (*LessonPlanResult, error) {
	if req == nil || req.Topic == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "lesson plan topic cannot be empty")
	}

	key := cache.Key("lesson_plan", req.Topic, req.Subject, req.Grade,
		strconv.Itoa(req.DurationMinutes), strings.Join(req.Objectives, ";"))
	var cached LessonPlanResult
	if o.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	contextBlock, sources, retrievalDegraded := o.retrieveContext(ctx, req.Topic+" "+req.Subject, subjectGradeFilter(req.Subject, req.Grade))

	completion, err := o.complete(ctx, systemTeachingAssistant, lessonPlanPrompt(req, contextBlock), true)
	if err != nil {
		return nil, err
	}

	result := &LessonPlanResult{Sources: sources, Degraded: retrievalDegraded || completion.Degraded}
	if completion.Degraded {
		result.Plan = placeholderLessonPlan(req)
		return result, nil
	}
	parsed := parseInto(ctx, completion.Content, &result.Plan)
	if !parsed {
		result.Plan = LessonPlan{Title: req.Topic, Subject: req.Subject, Grade: req.Grade}
	}
	if parsed && !result.Degraded {
		o.toCache(ctx, key, result, lessonPlanTTL)
	}
	return result, nil
}

// GenerateAssessment produces a structured assessment grounded in the corpus
func (o *Orchestrator) GenerateAssessment(ctx context.Context, req *AssessmentReq) (*AssessmentResult, error) {
	if req == nil || req.Topic == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "assessment topic cannot be empty")
	}

	key := cache.Key("assessment", req.Topic, req.Subject, req.Grade,
		strconv.Itoa(req.QuestionCount), strings.Join(req.QuestionTypes, ";"))
	var cached AssessmentResult
	if o.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	contextBlock, sources, retrievalDegraded := o.retrieveContext(ctx, req.Topic+" "+req.Subject, subjectGradeFilter(req.Subject, req.Grade))

	completion, err := o.complete(ctx, systemTeachingAssistant, assessmentPrompt(req, contextBlock), true)
	if err != nil {
		return nil, err
	}

	result := &AssessmentResult{Sources: sources, Degraded: retrievalDegraded || completion.Degraded}
	if completion.Degraded {
		result.Assessment = placeholderAssessment(req)
		return result, nil
	}
	parsed := parseInto(ctx, completion.Content, &result.Assessment)
	if !parsed {
		result.Assessment = Assessment{Title: req.Topic, Subject: req.Subject, Grade: req.Grade}
	}
	if parsed && !result.Degraded {
		o.toCache(ctx, key, result, assessmentTTL)
	}
	return result, nil
}

// GenerateFeedback reviews one student submission. Results are not cached.
func (o *Orchestrator) GenerateFeedback(ctx context.Context, req *FeedbackReq) (*FeedbackResult, error) {
	if req == nil || req.StudentWork == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "student work cannot be empty")
	}

	contextBlock, sources, retrievalDegraded := o.retrieveContext(ctx, req.Assignment+" "+req.Subject, subjectGradeFilter(req.Subject, req.Grade))

	completion, err := o.complete(ctx, systemTeachingAssistant, feedbackPrompt(req, contextBlock), true)
	if err != nil {
		return nil, err
	}

	result := &FeedbackResult{Sources: sources, Degraded: retrievalDegraded || completion.Degraded}
	if completion.Degraded {
		result.Feedback = Feedback{Summary: degradedNotice}
		return result, nil
	}
	if !parseInto(ctx, completion.Content, &result.Feedback) {
		result.Feedback = Feedback{}
	}
	return result, nil
}

// GenerateDifferentiatedMaterials produces the same material at three
// difficulty levels in a single call
func (o *Orchestrator) GenerateDifferentiatedMaterials(ctx context.Context, req *MaterialsReq) (*MaterialsResult, error) {
	if req == nil || req.Topic == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "materials topic cannot be empty")
	}

	key := cache.Key("differentiated_materials", req.Topic, req.Subject, req.Grade)
	var cached MaterialsResult
	if o.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	contextBlock, sources, retrievalDegraded := o.retrieveContext(ctx, req.Topic+" "+req.Subject, subjectGradeFilter(req.Subject, req.Grade))

	completion, err := o.complete(ctx, systemTeachingAssistant, materialsPrompt(req, contextBlock), true)
	if err != nil {
		return nil, err
	}

	result := &MaterialsResult{Sources: sources, Degraded: retrievalDegraded || completion.Degraded}
	if completion.Degraded {
		result.Materials = placeholderMaterials(req)
		return result, nil
	}
	parsed := parseInto(ctx, completion.Content, &result.Materials)
	if !parsed {
		result.Materials = DifferentiatedMaterials{Topic: req.Topic}
	}
	if parsed && !result.Degraded {
		o.toCache(ctx, key, result, materialsTTL)
	}
	return result, nil
}

// RecommendTasks returns a ranked task list. Provider output is validated
// entry by entry; malformed entries are downgraded to plain suggestions
// rather than rejected.
func (o *Orchestrator) RecommendTasks(ctx context.Context, req *RecommendReq) (*RecommendResult, error) {
	if req == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "recommend request cannot be nil")
	}

	key := cache.Key("recommend_tasks", req.Subject, req.Grade, req.Focus)
	var cached RecommendResult
	if o.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	contextBlock, sources, retrievalDegraded := o.retrieveContext(ctx, strings.TrimSpace(req.Subject+" "+req.Focus), subjectGradeFilter(req.Subject, req.Grade))

	completion, err := o.complete(ctx, systemTeachingAssistant, recommendPrompt(req, contextBlock), true)
	if err != nil {
		return nil, err
	}

	result := &RecommendResult{Sources: sources, Degraded: retrievalDegraded || completion.Degraded}
	if completion.Degraded {
		result.Recommendations = []TaskRecommendation{{
			Type:  RecommendationSuggestion,
			Title: degradedNotice,
		}}
		return result, nil
	}
	result.Recommendations = parseRecommendations(ctx, completion.Content)
	if len(result.Recommendations) > 0 && !result.Degraded {
		o.toCache(ctx, key, result, recommendTTL)
	}
	return result, nil
}

// Query answers a free-form question and always returns the excerpts used
func (o *Orchestrator) Query(ctx context.Context, req *QueryReq) (*QueryResult, error) {
	if req == nil || req.Question == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "question cannot be empty")
	}

	key := cache.Key("query", req.Question, req.IndexName, canonicalFilter(req.Filter), strconv.FormatBool(req.JSONMode))
	var cached QueryResult
	if o.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	retrieveReq := &retriever.RetrieveReq{
		Query:     req.Question,
		IndexName: req.IndexName,
		Filter:    req.Filter,
		TopK:      req.TopK,
	}
	// a retrieval failure degrades the answer instead of failing it, matching
	// the generation paths; the prompt simply carries no reference material
	var (
		contextBlock      string
		sources           []Source
		retrievalDegraded bool
	)
	if retrieval, err := o.retriever.Retrieve(ctx, retrieveReq); err != nil {
		g.Log().Warningf(ctx, "Retrieval failed, answering without grounding context: %v", err)
		retrievalDegraded = true
	} else {
		contextBlock = retrieval.Context
		sources = sourcesFromDocs(retrieval.Documents)
		retrievalDegraded = retrieval.Degraded
	}

	completion, err := o.complete(ctx, systemAnswerAssistant, queryPrompt(req, contextBlock), req.JSONMode)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Sources:  sources,
		Degraded: retrievalDegraded || completion.Degraded,
	}
	if completion.Degraded {
		result.Answer = degradedNotice
		return result, nil
	}
	if req.JSONMode {
		var shaped struct {
			Answer string `json:"answer"`
		}
		if parseInto(ctx, completion.Content, &shaped) && shaped.Answer != "" {
			result.Answer = shaped.Answer
		} else {
			result.Answer = strings.TrimSpace(completion.Content)
		}
	} else {
		result.Answer = strings.TrimSpace(completion.Content)
	}
	if !result.Degraded {
		o.toCache(ctx, key, result, queryTTL)
	}
	return result, nil
}

// IndexContent ingests documents into the corpus
func (o *Orchestrator) IndexContent(ctx context.Context, indexName string, docs []*schema.Document) (*indexer.IndexReport, error) {
	return o.indexer.IndexDocuments(ctx, indexName, docs)
}

func (o *Orchestrator) fromCache(ctx context.Context, key string, out any) bool {
	raw, ok := o.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := sonic.Unmarshal([]byte(raw), out); err != nil {
		g.Log().Warningf(ctx, "Failed to decode cached result, treating as miss: %v", err)
		return false
	}
	return true
}

func (o *Orchestrator) toCache(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := sonic.Marshal(value)
	if err != nil {
		g.Log().Warningf(ctx, "Failed to encode result for caching: %v", err)
		return
	}
	o.cache.Set(ctx, key, string(data), ttl)
}

func (o *Orchestrator) complete(ctx context.Context, system, user string, jsonMode bool) (*client.Completion, error) {
	if o.conf.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.conf.CompletionTimeout)
		defer cancel()
	}
	return o.chat.Complete(ctx, &client.CompletionRequest{
		Messages: []client.Message{
			{Role: client.RoleSystem, Content: system},
			{Role: client.RoleUser, Content: user},
		},
		Temperature: o.conf.Temperature,
		JSONMode:    jsonMode,
	})
}

// retrieveContext fetches grounding material for a generation task. A
// retrieval failure degrades the request instead of failing it; the prompt
// simply carries no reference material.
func (o *Orchestrator) retrieveContext(ctx context.Context, query string, filter map[string]any) (string, []Source, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, false
	}
	res, err := o.retriever.Retrieve(ctx, &retriever.RetrieveReq{Query: query, Filter: filter})
	if err != nil {
		g.Log().Warningf(ctx, "Retrieval failed, generating without grounding context: %v", err)
		return "", nil, true
	}
	return res.Context, sourcesFromDocs(res.Documents), res.Degraded
}

func parseRecommendations(ctx context.Context, content string) []TaskRecommendation {
	var shaped struct {
		Recommendations []TaskRecommendation `json:"recommendations"`
	}
	var recs []TaskRecommendation
	if parseInto(ctx, content, &shaped) {
		recs = shaped.Recommendations
	} else {
		// some providers return a bare array despite the contract
		var bare []TaskRecommendation
		if parseInto(ctx, content, &bare) {
			recs = bare
		} else if text := strings.TrimSpace(content); text != "" {
			return []TaskRecommendation{{Type: RecommendationSuggestion, Title: common.TruncateToTokens(text, 50)}}
		} else {
			return nil
		}
	}

	normalized := make([]TaskRecommendation, 0, len(recs))
	for _, rec := range recs {
		rec = normalizeRecommendation(rec)
		if rec.Title == "" {
			continue
		}
		normalized = append(normalized, rec)
	}
	return normalized
}

func sourcesFromDocs(docs []*schema.Document) []Source {
	// chunks of the same document collapse into one citation
	docs = common.RemoveDuplicates(docs, func(d *schema.Document) string {
		if d == nil {
			return ""
		}
		if parent, ok := d.MetaData[common.MetaParentDocumentID].(string); ok && parent != "" {
			return parent
		}
		return d.ID
	})

	sources := make([]Source, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		source := Source{
			ID:      doc.ID,
			Snippet: common.TruncateToTokens(doc.Content, 50),
			Score:   doc.Score,
		}
		if v, ok := doc.MetaData[common.MetaSubject]; ok {
			source.Subject = fmt.Sprintf("%v", v)
		}
		if v, ok := doc.MetaData[common.MetaGrade]; ok {
			source.Grade = fmt.Sprintf("%v", v)
		}
		sources = append(sources, source)
	}
	return sources
}

func subjectGradeFilter(subject, grade string) map[string]any {
	filter := make(map[string]any, 2)
	if subject != "" {
		filter[common.MetaSubject] = subject
	}
	if grade != "" {
		filter[common.MetaGrade] = grade
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// canonicalFilter serializes a filter with stable key order for cache keys
func canonicalFilter(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, filter[k]))
	}
	return strings.Join(parts, ",")
}

func placeholderLessonPlan(req *LessonPlanReq) LessonPlan {
	return LessonPlan{
		Title:           "[Unavailable] " + req.Topic,
		Subject:         req.Subject,
		Grade:           req.Grade,
		DurationMinutes: req.DurationMinutes,
		Objectives:      req.Objectives,
		AssessmentIdeas: degradedNotice,
	}
}

func placeholderAssessment(req *AssessmentReq) Assessment {
	return Assessment{
		Title:   "[Unavailable] " + req.Topic,
		Subject: req.Subject,
		Grade:   req.Grade,
	}
}

func placeholderMaterials(req *MaterialsReq) DifferentiatedMaterials {
	return DifferentiatedMaterials{
		Topic: req.Topic,
		Variants: []MaterialVariant{
			{Level: "basic", Content: degradedNotice},
			{Level: "intermediate", Content: degradedNotice},
			{Level: "advanced", Content: degradedNotice},
		},
	}
}
