package devserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/store"
)

// grade scores answers against q. A later answer to the same question
// replaces an earlier one; answers to unknown questions are rejected.
func grade(q *quiz.Quiz, answers []quiz.SubmittedAnswer) ([]quiz.AnswerRecord, int, error) {
	index := make(map[int]int, len(answers))
	var records []quiz.AnswerRecord
	for _, a := range answers {
		question, ok := q.QuestionByID(a.QuestionID)
		if !ok {
			return nil, 0, fmt.Errorf("question %d is not part of this quiz", a.QuestionID)
		}
		rec := quiz.AnswerRecord{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      a.SelectedAnswer == question.CorrectAnswer,
		}
		if i, seen := index[a.QuestionID]; seen {
			records[i] = rec
			continue
		}
		index[a.QuestionID] = len(records)
		records = append(records, rec)
	}

	score := 0
	for _, rec := range records {
		if rec.IsCorrect {
			score++
		}
	}
	if records == nil {
		records = []quiz.AnswerRecord{}
	}
	return records, score, nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitBody
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.QuizID == "" {
		s.fail(w, http.StatusBadRequest, "quizId is required")
		return
	}

	q, err := s.store.Quizzes().Get(r.Context(), req.QuizID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(w, http.StatusNotFound, "Quiz not found")
		return
	case err != nil:
		s.internalError(w, r, "get quiz", err)
		return
	}

	records, score, err := grade(q, req.Answers)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := s.gen.Analyze(r.Context(), q, records)
	if err != nil {
		// The score stands without feedback.
		s.logger.Warn("analyze result", zap.String("quiz_id", q.ID), zap.Error(err))
	}

	res := &quiz.Result{
		ID:             uuid.NewString(),
		QuizID:         q.ID,
		Score:          score,
		TotalQuestions: len(q.Questions),
		Answers:        records,
		Analysis:       analysis,
		CreatedAt:      s.now(),
	}
	if err := s.store.Results().Save(r.Context(), userID(r.Context()), res); err != nil {
		s.internalError(w, r, "save result", err)
		return
	}

	s.metrics.submitted.Inc()
	s.logger.Info("submission scored",
		zap.String("result_id", res.ID),
		zap.String("quiz_id", q.ID),
		zap.Int("score", score),
		zap.Int("total", res.TotalQuestions))
	s.respond(w, http.StatusCreated, idResponse{ID: res.ID})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Results().ListByUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.internalError(w, r, "list results", err)
		return
	}
	if results == nil {
		results = []quiz.ResultSummary{}
	}
	s.respond(w, http.StatusOK, results)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Results().Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(w, http.StatusNotFound, "Result not found")
		return
	case err != nil:
		s.internalError(w, r, "get result", err)
		return
	}
	s.respond(w, http.StatusOK, res)
}
