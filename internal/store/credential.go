package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const credentialsTable = "credentials"

type credentialRepo struct {
	drv *entsql.Driver
}

func (r *credentialRepo) Save(ctx context.Context, token string) error {
	q, args := builder().Insert(credentialsTable).
		Columns("id", "token", "saved_at").
		Values(1, token, time.Now().UnixMilli()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *credentialRepo) Load(ctx context.Context) (*Credential, error) {
	q, args := builder().Select("token", "saved_at").
		From(builder().Table(credentialsTable)).
		Where(entsql.EQ("id", 1)).
		Query()

	var cred *Credential
	err := queryRows(ctx, r.drv, q, args, func(rows *entsql.Rows) error {
		var (
			token   string
			savedAt int64
		)
		if err := rows.Scan(&token, &savedAt); err != nil {
			return err
		}
		cred = &Credential{Token: token, SavedAt: time.UnixMilli(savedAt)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return cred, nil
}

func (r *credentialRepo) Clear(ctx context.Context) error {
	q, args := builder().Delete(credentialsTable).Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// queryRows runs q and calls scan once per row.
func queryRows(ctx context.Context, drv *entsql.Driver, q string, args []any, scan func(*entsql.Rows) error) error {
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, q, args, rows); err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
