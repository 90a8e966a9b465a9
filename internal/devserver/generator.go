package devserver

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/scoring"
)

// Topic is what a quiz is generated about.
type Topic struct {
	Subject      string
	Chapter      string
	StudentClass string
	Difficulty   string
	Pace         string
	NumQuestions int
	// Source names the uploaded document, when there is one.
	Source string
}

func (t Topic) title() string {
	if t.Chapter != "" {
		return fmt.Sprintf("%s: %s", t.Subject, t.Chapter)
	}
	return t.Subject + " quiz"
}

// Generator writes quizzes and analyses submissions.
type Generator interface {
	Generate(ctx context.Context, topic Topic) (*quiz.Quiz, error)
	Analyze(ctx context.Context, q *quiz.Quiz, answers []quiz.AnswerRecord) (quiz.Analysis, error)
}

// builtinGenerator produces deterministic quizzes without a model.
type builtinGenerator struct{}

type questionTemplate struct {
	text    string
	options []string
	answer  int
	explain string
}

var builtinTemplates = []questionTemplate{
	{
		text:    "Which study habit best helps you retain the key ideas of %s?",
		options: []string{"Spaced revision with self-testing", "Re-reading once the night before", "Highlighting every line", "Skipping the worked examples"},
		answer:  0,
		explain: "Retrieval practice spread over time outperforms passive re-reading.",
	},
	{
		text:    "When a numerical problem in %s gives units in mixed systems, what should you do first?",
		options: []string{"Convert everything to SI units", "Ignore the units", "Use the largest unit given", "Round every value"},
		answer:  0,
		explain: "Working in one consistent unit system avoids scaling errors.",
	},
	{
		text:    "A definition from %s is best memorised by:",
		options: []string{"Writing it in your own words and checking it against the text", "Copying it ten times", "Reading it aloud once", "Leaving it for the exam"},
		answer:  0,
		explain: "Paraphrasing forces you to understand the terms you are using.",
	},
	{
		text:    "Which of these is the most reliable way to check an answer to a %s problem?",
		options: []string{"Estimate the expected magnitude", "Compare with a friend's answer", "Trust the first attempt", "Check only the final digit"},
		answer:  0,
		explain: "An order-of-magnitude estimate quickly exposes slips.",
	},
	{
		text:    "In an exam, a long question on %s should be approached by:",
		options: []string{"Listing the given data and what is asked", "Starting with the final formula", "Writing everything you know", "Skipping it entirely"},
		answer:  0,
		explain: "Organising the givens first makes the method clear.",
	},
	{
		text:    "Diagrams in %s are most useful when they:",
		options: []string{"Are labelled and drawn before solving", "Are drawn after the answer", "Contain no labels", "Are copied from memory without checking"},
		answer:  0,
		explain: "A labelled sketch exposes the relationships you need.",
	},
}

func (builtinGenerator) Generate(_ context.Context, topic Topic) (*quiz.Quiz, error) {
	if topic.NumQuestions <= 0 {
		return nil, errors.New("no questions requested")
	}
	subject := topic.Chapter
	if subject == "" {
		subject = topic.Subject
	}

	h := fnv.New32a()
	h.Write([]byte(topic.Subject + "/" + topic.Chapter + "/" + topic.Source))
	offset := int(h.Sum32() % uint32(len(builtinTemplates)))

	q := &quiz.Quiz{Title: topic.title(), Subject: topic.Subject}
	for i := range topic.NumQuestions {
		tpl := builtinTemplates[(offset+i)%len(builtinTemplates)]
		// Rotate options so the right answer is not always first.
		shift := (i + offset) % len(tpl.options)
		opts := append(append([]string{}, tpl.options[shift:]...), tpl.options[:shift]...)
		q.Questions = append(q.Questions, quiz.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf(tpl.text, subject),
			Options:       opts,
			CorrectAnswer: tpl.options[tpl.answer],
			Explanation:   tpl.explain,
		})
	}
	return q, nil
}

func (builtinGenerator) Analyze(_ context.Context, q *quiz.Quiz, answers []quiz.AnswerRecord) (quiz.Analysis, error) {
	var a quiz.Analysis
	correct := 0
	for _, rec := range answers {
		question, ok := q.QuestionByID(rec.QuestionID)
		if !ok {
			continue
		}
		if rec.IsCorrect {
			correct++
			a.Strengths = append(a.Strengths, "Answered correctly: "+question.Text)
		} else {
			a.Weaknesses = append(a.Weaknesses, "Review: "+question.Text)
		}
	}
	unanswered := len(q.Questions) - len(answers)
	if unanswered > 0 {
		a.Weaknesses = append(a.Weaknesses, fmt.Sprintf("%d question(s) left unanswered", unanswered))
	}

	pct, err := scoring.Percentage(correct, len(q.Questions))
	if err != nil {
		return a, err
	}
	switch scoring.BandFor(pct) {
	case scoring.BandHigh:
		a.Recommendations = []string{"Attempt a harder difficulty on the same chapter."}
	case scoring.BandMid:
		a.Recommendations = []string{"Revisit the questions marked for review, then retake the quiz."}
	default:
		a.Recommendations = []string{
			"Re-read the chapter summary before retrying.",
			"Try the quiz again at a slower pace.",
		}
	}
	return a, nil
}

// llmGenerator asks a model first and falls back to the built-in
// generator when the model fails or returns an unusable quiz.
type llmGenerator struct {
	provider llm.Provider
	fallback Generator
	logger   *zap.Logger
}

func newLLMGenerator(p llm.Provider, logger *zap.Logger) *llmGenerator {
	return &llmGenerator{provider: p, fallback: builtinGenerator{}, logger: logger}
}

func (g *llmGenerator) Generate(ctx context.Context, topic Topic) (*quiz.Quiz, error) {
	q, err := llm.WriteQuiz(ctx, g.provider, llm.QuizBrief{
		Subject:      topic.Subject,
		Chapter:      topic.Chapter,
		StudentClass: topic.StudentClass,
		Difficulty:   topic.Difficulty,
		Pace:         topic.Pace,
		NumQuestions: topic.NumQuestions,
		Document:     topic.Source,
	})
	if err != nil {
		g.logger.Warn("model quiz generation failed, using built-in generator",
			zap.String("subject", topic.Subject), zap.Error(err))
		return g.fallback.Generate(ctx, topic)
	}
	if q.Title == "" {
		q.Title = topic.title()
	}
	return q, nil
}

func (g *llmGenerator) Analyze(ctx context.Context, q *quiz.Quiz, answers []quiz.AnswerRecord) (quiz.Analysis, error) {
	a, err := llm.ReviewAttempt(ctx, g.provider, q, answers)
	if err != nil {
		g.logger.Warn("model analysis failed, using built-in analysis", zap.Error(err))
		return g.fallback.Analyze(ctx, q, answers)
	}
	return a, nil
}
