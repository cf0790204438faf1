package orchestrator

import (
	"fmt"
	"strings"
)

// Prompt builders. Each template carries a role instruction, the caller's
// parameters, the retrieved context when present, and an explicit output
// contract so the completion can be parsed mechanically.

const systemTeachingAssistant = "You are an experienced instructional designer helping a teacher prepare classroom material. " +
	"Ground your output in the provided reference material when it is relevant. " +
	"Respond with a single JSON object and nothing else."

const systemAnswerAssistant = "You are a knowledgeable teaching assistant. " +
	"Answer using the provided reference material when it is relevant, and say so when it is not sufficient."

func contextSection(contextBlock string) string {
	if contextBlock == "" {
		return "No reference material was found for this request.\n"
	}
	return "Reference material:\n" + contextBlock + "\n"
}

func lessonPlanPrompt(req *LessonPlanReq, contextBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a lesson plan.\n\nTopic: %s\nSubject: %s\nGrade: %s\nDuration: %d minutes\n",
		req.Topic, req.Subject, req.Grade, req.DurationMinutes)
	if len(req.Objectives) > 0 {
		fmt.Fprintf(&b, "Learning objectives: %s\n", strings.Join(req.Objectives, "; "))
	}
	b.WriteString("\n")
	b.WriteString(contextSection(contextBlock))
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "title": string,
  "subject": string,
  "grade": string,
  "duration_minutes": number,
  "objectives": [string],
  "activities": [{"name": string, "description": string, "duration_minutes": number}],
  "materials": [string],
  "assessment_ideas": string
}`)
	return b.String()
}

func assessmentPrompt(req *AssessmentReq, contextBlock string) string {
	questionTypes := "multiple_choice, short_answer"
	if len(req.QuestionTypes) > 0 {
		questionTypes = strings.Join(req.QuestionTypes, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create an assessment.\n\nTopic: %s\nSubject: %s\nGrade: %s\nNumber of questions: %d\nAllowed question types: %s\n\n",
		req.Topic, req.Subject, req.Grade, req.QuestionCount, questionTypes)
	b.WriteString(contextSection(contextBlock))
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "title": string,
  "subject": string,
  "grade": string,
  "questions": [{"prompt": string, "type": string, "options": [string], "answer": string, "points": number}],
  "total_points": number
}
Omit "options" for non-multiple-choice questions.`)
	return b.String()
}

func feedbackPrompt(req *FeedbackReq, contextBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write constructive feedback on a student submission.\n\nAssignment: %s\nSubject: %s\nGrade: %s\n\nStudent work:\n%s\n\n",
		req.Assignment, req.Subject, req.Grade, req.StudentWork)
	b.WriteString(contextSection(contextBlock))
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "summary": string,
  "strengths": [string],
  "improvements": [string],
  "next_steps": [string]
}
Keep the tone encouraging and specific to the submission.`)
	return b.String()
}

func materialsPrompt(req *MaterialsReq, contextBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create differentiated teaching material at three difficulty levels.\n\nTopic: %s\nSubject: %s\nGrade: %s\n\n",
		req.Topic, req.Subject, req.Grade)
	b.WriteString(contextSection(contextBlock))
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "topic": string,
  "variants": [
    {"level": "basic", "content": string, "tips": [string]},
    {"level": "intermediate", "content": string, "tips": [string]},
    {"level": "advanced", "content": string, "tips": [string]}
  ]
}
All three levels must cover the same topic.`)
	return b.String()
}

func recommendPrompt(req *RecommendReq, contextBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend the next teaching tasks for this class, most useful first.\n\nSubject: %s\nGrade: %s\n", req.Subject, req.Grade)
	if req.Focus != "" {
		fmt.Fprintf(&b, "Current focus: %s\n", req.Focus)
	}
	b.WriteString("\n")
	b.WriteString(contextSection(contextBlock))
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "recommendations": [{"type": string, "title": string, "reason": string, "priority": number}]
}
"type" must be one of: lesson_plan, assessment, resource, approval.`)
	return b.String()
}

func queryPrompt(req *QueryReq, contextBlock string) string {
	var b strings.Builder
	b.WriteString(contextSection(contextBlock))
	fmt.Fprintf(&b, "\nQuestion: %s\n", req.Question)
	if req.JSONMode {
		b.WriteString(`
Return a JSON object with exactly these fields:
{
  "answer": string
}`)
	}
	return b.String()
}
