package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		drv: entsql.OpenDB(dialect.SQLite, db),
		seq: seq,
	}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Credentials returns the repo holding the signed-in learner's token.
func (s *Store) Credentials() CredentialRepo {
	return &credentialRepo{drv: s.drv}
}

// Users returns the dev backend's account repo.
func (s *Store) Users() UserRepo {
	return &userRepo{drv: s.drv}
}

// Quizzes returns the dev backend's quiz repo.
func (s *Store) Quizzes() QuizRepo {
	return &quizRepo{drv: s.drv}
}

// Results returns the dev backend's result repo.
func (s *Store) Results() ResultRepo {
	return &resultRepo{drv: s.drv}
}

// Events returns the LLM request event log.
func (s *Store) Events() EventRepo {
	return &eventRepo{drv: s.drv, seq: s.seq}
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. QUIZCRAFT_DB environment variable
// 2. $XDG_DATA_HOME/quizcraft/quizcraft.db
// 3. ~/.local/share/quizcraft/quizcraft.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("QUIZCRAFT_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "quizcraft", "quizcraft.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
