package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/quizcraft/internal/quiz"
)

// QuizSchema is the reply shape for TaskQuiz.
var QuizSchema = &Schema{
	Name:        "quiz-questions",
	Description: "A multiple-choice quiz",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"title", "questions"},
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"question_text", "options", "correct_answer", "explanation"},
					"properties": map[string]any{
						"question_text":  map[string]any{"type": "string", "minLength": 1},
						"options":        map[string]any{"type": "array", "minItems": 2, "maxItems": 5, "items": map[string]any{"type": "string"}},
						"correct_answer": map[string]any{"type": "string"},
						"explanation":    map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// AnalysisSchema is the reply shape for TaskAnalysis.
var AnalysisSchema = &Schema{
	Name:        "result-analysis",
	Description: "Feedback on a quiz attempt",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"strengths", "weaknesses", "recommendations"},
		"properties": map[string]any{
			"strengths":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weaknesses":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
}

const quizInstructions = `You write multiple-choice quizzes for school students.
Each question has between 2 and 5 options and exactly one correct answer.
correct_answer must be copied verbatim from options.
Keep explanations to one or two sentences.`

const analysisInstructions = `You review a student's quiz attempt.
List what they did well, where they went wrong, and what to study next.
Be specific to the questions and brief.`

// QuizBrief describes the quiz to write.
type QuizBrief struct {
	Subject      string
	Chapter      string
	StudentClass string
	Difficulty   string
	Pace         string
	NumQuestions int
	Document     string // uploaded file name, if any
}

func (b QuizBrief) input() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d questions for class %s %s", b.NumQuestions, b.StudentClass, b.Subject)
	if b.Chapter != "" {
		fmt.Fprintf(&sb, ", chapter %q", b.Chapter)
	}
	if b.Document != "" {
		fmt.Fprintf(&sb, ", based on the document %q", b.Document)
	}
	fmt.Fprintf(&sb, ".\nDifficulty: %s. Pace: %s.", b.Difficulty, b.Pace)
	return sb.String()
}

type draftQuiz struct {
	Title     string `json:"title"`
	Questions []struct {
		Text          string   `json:"question_text"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
	} `json:"questions"`
}

// WriteQuiz asks p for a quiz. Questions are numbered from 1 and extra
// questions beyond the brief are dropped. A question whose correct answer
// is not one of its options fails the whole quiz.
func WriteQuiz(ctx context.Context, p Provider, brief QuizBrief) (*quiz.Quiz, error) {
	c, err := p.Complete(ctx, Prompt{
		Task:         TaskQuiz,
		Instructions: quizInstructions,
		Input:        brief.input(),
		Output:       QuizSchema,
		Items:        brief.NumQuestions,
		MaxTokens:    4096,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, err
	}

	var draft draftQuiz
	if err := c.Decode(&draft); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}

	q := &quiz.Quiz{Title: draft.Title, Subject: brief.Subject}
	for i, d := range draft.Questions {
		if brief.NumQuestions > 0 && i == brief.NumQuestions {
			break
		}
		question := quiz.Question{
			ID:            i + 1,
			Text:          d.Text,
			Options:       d.Options,
			CorrectAnswer: d.CorrectAnswer,
			Explanation:   d.Explanation,
		}
		if !question.HasOption(question.CorrectAnswer) {
			return nil, fmt.Errorf("question %d: correct answer %q is not an option", i+1, d.CorrectAnswer)
		}
		q.Questions = append(q.Questions, question)
	}
	return q, nil
}

// ReviewAttempt asks p for feedback on a graded attempt.
func ReviewAttempt(ctx context.Context, p Provider, q *quiz.Quiz, answers []quiz.AnswerRecord) (quiz.Analysis, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quiz: %s\n", q.Title)
	for _, rec := range answers {
		question, ok := q.QuestionByID(rec.QuestionID)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "- %s\n  chose %q (correct: %q)\n", question.Text, rec.SelectedAnswer, question.CorrectAnswer)
	}
	if n := len(q.Questions) - len(answers); n > 0 {
		fmt.Fprintf(&sb, "%d question(s) were left unanswered.\n", n)
	}

	c, err := p.Complete(ctx, Prompt{
		Task:         TaskAnalysis,
		Instructions: analysisInstructions,
		Input:        sb.String(),
		Output:       AnalysisSchema,
		MaxTokens:    1024,
	})
	if err != nil {
		return quiz.Analysis{}, err
	}
	var a quiz.Analysis
	if err := c.Decode(&a); err != nil {
		return quiz.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return a, nil
}
