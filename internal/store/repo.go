package store

import (
	"context"
	"time"

	"github.com/abhisek/quizcraft/internal/quiz"
)

// Credential is the persisted bearer token.
type Credential struct {
	Token   string
	SavedAt time.Time
}

// CredentialRepo persists the signed-in learner's token. There is at most
// one credential.
type CredentialRepo interface {
	// Save replaces any stored token.
	Save(ctx context.Context, token string) error

	// Load returns the stored token, or nil if none is stored.
	Load(ctx context.Context) (*Credential, error)

	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// User is a dev backend account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepo stores dev backend accounts.
type UserRepo interface {
	// Create inserts a user. Returns ErrConflict when the username or
	// email is taken.
	Create(ctx context.Context, u *User) error

	// ByEmail returns the user with the given email or ErrNotFound.
	ByEmail(ctx context.Context, email string) (*User, error)
}

// QuizRepo stores generated quizzes.
type QuizRepo interface {
	Save(ctx context.Context, ownerID string, q *quiz.Quiz) error

	// Get returns the quiz or ErrNotFound.
	Get(ctx context.Context, id string) (*quiz.Quiz, error)
}

// ResultRepo stores scored submissions.
type ResultRepo interface {
	Save(ctx context.Context, userID string, r *quiz.Result) error

	// Get returns the user's result joined with its quiz, or ErrNotFound.
	Get(ctx context.Context, userID, id string) (*quiz.Result, error)

	// ListByUser returns the user's results, newest first.
	ListByUser(ctx context.Context, userID string) ([]quiz.ResultSummary, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMRequestEvent is a recorded LLM call.
type LLMRequestEvent struct {
	Sequence  int64
	CreatedAt time.Time
	LLMRequestEventData
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// RecentLLMRequests returns up to limit events, newest first.
	RecentLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error)
}
