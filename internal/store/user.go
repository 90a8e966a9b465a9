package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrConflict is returned when an insert violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

const usersTable = "users"

type userRepo struct {
	drv *entsql.Driver
}

func (r *userRepo) Create(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	q, args := builder().Insert(usersTable).
		Columns("id", "username", "email", "password_hash", "created_at").
		Values(u.ID, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt.UnixMilli()).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepo) ByEmail(ctx context.Context, email string) (*User, error) {
	q, args := builder().Select("id", "username", "email", "password_hash", "created_at").
		From(builder().Table(usersTable)).
		Where(entsql.EQ("email", strings.ToLower(email))).
		Query()

	var u *User
	err := queryRows(ctx, r.drv, q, args, func(rows *entsql.Rows) error {
		var (
			row       User
			createdAt int64
		)
		if err := rows.Scan(&row.ID, &row.Username, &row.Email, &row.PasswordHash, &createdAt); err != nil {
			return err
		}
		row.CreatedAt = time.UnixMilli(createdAt)
		u = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
