package store

import (
	"context"
	"database/sql"
	"fmt"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL REFERENCES quizzes(id),
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS results_user_created ON results (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		sequence INTEGER PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
}

// migrate creates any missing tables. Schema changes are additive only.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
