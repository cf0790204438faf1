package orchestrator

import "strings"

// Source is one retrieved excerpt a generation was grounded on
type Source struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	Subject string  `json:"subject,omitempty"`
	Grade   string  `json:"grade,omitempty"`
	Score   float32 `json:"score"`
}

// LessonPlanReq parameters for lesson plan generation
type LessonPlanReq struct {
	Topic           string
	Subject         string
	Grade           string
	DurationMinutes int
	Objectives      []string
}

// Activity one block of a lesson plan
type Activity struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

// LessonPlan structured lesson plan payload
type LessonPlan struct {
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	Grade           string     `json:"grade"`
	DurationMinutes int        `json:"duration_minutes"`
	Objectives      []string   `json:"objectives"`
	Activities      []Activity `json:"activities"`
	Materials       []string   `json:"materials"`
	AssessmentIdeas string     `json:"assessment_ideas"`
}

// LessonPlanResult generation result with grounding sources
type LessonPlanResult struct {
	Plan     LessonPlan `json:"plan"`
	Sources  []Source   `json:"sources"`
	Degraded bool       `json:"degraded"`
}

// AssessmentReq parameters for assessment generation
type AssessmentReq struct {
	Topic         string
	Subject       string
	Grade         string
	QuestionCount int
	QuestionTypes []string // e.g. multiple_choice, short_answer
}

// Question one assessment item
type Question struct {
	Prompt  string   `json:"prompt"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer"`
	Points  int      `json:"points"`
}

// Assessment structured assessment payload
type Assessment struct {
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	Grade       string     `json:"grade"`
	Questions   []Question `json:"questions"`
	TotalPoints int        `json:"total_points"`
}

type AssessmentResult struct {
	Assessment Assessment `json:"assessment"`
	Sources    []Source   `json:"sources"`
	Degraded   bool       `json:"degraded"`
}

// FeedbackReq parameters for feedback generation. StudentWork is the
// submission text; results are never cached because submissions are unique.
type FeedbackReq struct {
	StudentWork string
	Assignment  string
	Subject     string
	Grade       string
}

// Feedback structured feedback payload
type Feedback struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	NextSteps    []string `json:"next_steps"`
}

type FeedbackResult struct {
	Feedback Feedback `json:"feedback"`
	Sources  []Source `json:"sources"`
	Degraded bool     `json:"degraded"`
}

// MaterialsReq parameters for differentiated material generation
type MaterialsReq struct {
	Topic   string
	Subject string
	Grade   string
}

// MaterialVariant one difficulty level of the same material
type MaterialVariant struct {
	Level   string   `json:"level"` // basic, intermediate, advanced
	Content string   `json:"content"`
	Tips    []string `json:"tips,omitempty"`
}

// DifferentiatedMaterials the three difficulty variants produced in one call
type DifferentiatedMaterials struct {
	Topic    string            `json:"topic"`
	Variants []MaterialVariant `json:"variants"`
}

type MaterialsResult struct {
	Materials DifferentiatedMaterials `json:"materials"`
	Sources   []Source                `json:"sources"`
	Degraded  bool                    `json:"degraded"`
}

// RecommendationType discriminates task recommendation variants
type RecommendationType string

const (
	RecommendationLessonPlan RecommendationType = "lesson_plan"
	RecommendationAssessment RecommendationType = "assessment"
	RecommendationResource   RecommendationType = "resource"
	RecommendationApproval   RecommendationType = "approval"
	// RecommendationSuggestion is the downgrade variant for provider output
	// that does not validate as any structured type
	RecommendationSuggestion RecommendationType = "suggestion"
)

// TaskRecommendation one entry of the ranked recommendation list
type TaskRecommendation struct {
	Type     RecommendationType `json:"type"`
	Title    string             `json:"title"`
	Reason   string             `json:"reason,omitempty"`
	Priority int                `json:"priority,omitempty"`
}

// RecommendReq parameters for task recommendation
type RecommendReq struct {
	Subject string
	Grade   string
	Focus   string // free-text steering, e.g. "upcoming exam on fractions"
}

type RecommendResult struct {
	Recommendations []TaskRecommendation `json:"recommendations"`
	Sources         []Source             `json:"sources"`
	Degraded        bool                 `json:"degraded"`
}

// QueryReq free-form question against the indexed corpus
type QueryReq struct {
	Question  string
	IndexName string
	Filter    map[string]any
	TopK      *int
	JSONMode  bool // request a single JSON object from the provider
}

// QueryResult always carries both the answer and the excerpts used
type QueryResult struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Degraded bool     `json:"degraded"`
}

// normalizeRecommendation validates one provider entry, downgrading anything
// malformed to a plain suggestion instead of trusting the payload.
func normalizeRecommendation(rec TaskRecommendation) TaskRecommendation {
	rec.Title = strings.TrimSpace(rec.Title)
	switch rec.Type {
	case RecommendationLessonPlan, RecommendationAssessment, RecommendationResource, RecommendationApproval:
		if rec.Title != "" {
			return rec
		}
	}
	downgraded := TaskRecommendation{
		Type:     RecommendationSuggestion,
		Title:    rec.Title,
		Reason:   rec.Reason,
		Priority: rec.Priority,
	}
	if downgraded.Title == "" {
		downgraded.Title = strings.TrimSpace(rec.Reason)
	}
	return downgraded
}
