package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/quizcraft/internal/quiz"
)

const quizzesTable = "quizzes"

type quizRepo struct {
	drv *entsql.Driver
}

func (r *quizRepo) Save(ctx context.Context, ownerID string, q *quiz.Quiz) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	stmt, args := builder().Insert(quizzesTable).
		Columns("id", "owner_id", "title", "subject", "payload", "created_at").
		Values(q.ID, ownerID, q.Title, q.Subject, string(payload), time.Now().UnixMilli()).
		Query()
	if err := r.drv.Exec(ctx, stmt, args, nil); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (r *quizRepo) Get(ctx context.Context, id string) (*quiz.Quiz, error) {
	stmt, args := builder().Select("payload").
		From(builder().Table(quizzesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	return getQuiz(ctx, r.drv, stmt, args)
}

func getQuiz(ctx context.Context, drv *entsql.Driver, stmt string, args []any) (*quiz.Quiz, error) {
	var payload string
	found := false
	err := queryRows(ctx, drv, stmt, args, func(rows *entsql.Rows) error {
		found = true
		return rows.Scan(&payload)
	})
	if err != nil {
		return nil, fmt.Errorf("query quiz: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	var q quiz.Quiz
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return nil, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return &q, nil
}
