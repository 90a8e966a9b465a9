package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/quizcraft/internal/quiz"
)

const resultsTable = "results"

type resultRepo struct {
	drv *entsql.Driver
}

func (r *resultRepo) Save(ctx context.Context, userID string, res *quiz.Result) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now()
	}

	// The quiz is joined back on read.
	stored := *res
	stored.Quiz = nil
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	q, args := builder().Insert(resultsTable).
		Columns("id", "user_id", "quiz_id", "score", "total_questions", "payload", "created_at").
		Values(res.ID, userID, res.QuizID, res.Score, res.TotalQuestions, string(payload), res.CreatedAt.UnixMilli()).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (r *resultRepo) Get(ctx context.Context, userID, id string) (*quiz.Result, error) {
	q, args := builder().Select("payload").
		From(builder().Table(resultsTable)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("user_id", userID))).
		Query()

	var payload string
	found := false
	err := queryRows(ctx, r.drv, q, args, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&payload)
	})
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	var res quiz.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	quizzes := &quizRepo{drv: r.drv}
	qz, err := quizzes.Get(ctx, res.QuizID)
	if err != nil {
		return nil, fmt.Errorf("join quiz %s: %w", res.QuizID, err)
	}
	res.Quiz = qz
	return &res, nil
}

func (r *resultRepo) ListByUser(ctx context.Context, userID string) ([]quiz.ResultSummary, error) {
	t1 := builder().Table(resultsTable).As("r")
	t2 := builder().Table(quizzesTable).As("q")
	q, args := builder().Select(
		t1.C("id"), t1.C("score"), t1.C("total_questions"), t1.C("created_at"), t2.C("id"), t2.C("title"),
	).
		From(t1).
		LeftJoin(t2).On(t1.C("quiz_id"), t2.C("id")).
		Where(entsql.EQ(t1.C("user_id"), userID)).
		OrderBy(entsql.Desc(t1.C("created_at"))).
		Query()

	var out []quiz.ResultSummary
	err := queryRows(ctx, r.drv, q, args, func(rows *entsql.Rows) error {
		var (
			s         quiz.ResultSummary
			createdAt int64
			quizID    *string
			title     *string
		)
		if err := rows.Scan(&s.ID, &s.Score, &s.TotalQuestions, &createdAt, &quizID, &title); err != nil {
			return err
		}
		s.CreatedAt = time.UnixMilli(createdAt)
		if quizID != nil {
			s.Quiz.ID = *quizID
		}
		if title != nil {
			s.Quiz.Title = *title
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}
