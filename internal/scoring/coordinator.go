package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/quiz"
)

// Backend is the remote scoring service.
type Backend interface {
	// SubmitAnswers records an attempt and returns the new result id.
	SubmitAnswers(ctx context.Context, quizID string, answers []quiz.SubmittedAnswer) (string, error)

	// GetResult fetches a scored result joined with its quiz.
	GetResult(ctx context.Context, resultID string) (*quiz.Result, error)
}

// Format turns an answer map into submission records. Unanswered questions
// are left out. Records are sorted by question id so request bodies are
// stable; receivers must not rely on the order.
func Format(answers quiz.AnswerMap) []quiz.SubmittedAnswer {
	out := make([]quiz.SubmittedAnswer, 0, len(answers))
	for id, a := range answers {
		out = append(out, quiz.SubmittedAnswer{QuestionID: id, SelectedAnswer: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Stage names the step of a submission that failed.
type Stage string

const (
	StageSubmit        Stage = "submit"
	StageFetchResult   Stage = "fetch result"
	StageInvalidResult Stage = "invalid result"
)

// SubmitError is returned when a submission does not produce a result.
// The caller's answers are never touched by the coordinator.
type SubmitError struct {
	Stage    Stage
	QuizID   string
	ResultID string // set once the attempt has been recorded by the server
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s for quiz %s: %v", e.Stage, e.QuizID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Recorded reports whether the server already stored the attempt. A recorded
// attempt must not be submitted again; only its result can be fetched.
func (e *SubmitError) Recorded() bool { return e.ResultID != "" }

// Retryable reports whether trying again can succeed.
func (e *SubmitError) Retryable() bool { return e.Stage != StageInvalidResult }

// UserMessage is the text shown to the learner.
func (e *SubmitError) UserMessage() string {
	reason := "The submission could not be sent."
	var um interface{ UserMessage() string }
	if errors.As(e.Err, &um) {
		reason = um.UserMessage()
	}
	switch e.Stage {
	case StageFetchResult:
		return "Your attempt was recorded but the result could not be loaded. " + reason +
			" Your answers are saved on the server, so retrying only loads the result."
	case StageInvalidResult:
		return "Your attempt was recorded but the server sent back an empty result. " +
			"Your answers are saved on the server; check Past results later."
	}
	return reason + " Your answers have been kept, so you can try again."
}

// Coordinator submits answers and fetches the scored result. It holds no
// per-attempt state: a caller whose submit succeeded but whose result fetch
// failed keeps SubmitError.ResultID and retries with FetchResult.
type Coordinator struct {
	backend Backend
	logger  *zap.Logger
}

// NewCoordinator creates a Coordinator. A nil logger disables logging.
func NewCoordinator(backend Backend, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend: backend,
		logger:  logger.Named("scoring"),
	}
}

// Submit sends records for quizID once and returns the scored result.
func (c *Coordinator) Submit(ctx context.Context, quizID string, records []quiz.SubmittedAnswer) (*quiz.Result, error) {
	resultID, err := c.backend.SubmitAnswers(ctx, quizID, records)
	if err != nil {
		c.logger.Warn("submission failed", zap.String("quiz_id", quizID), zap.Int("answers", len(records)), zap.Error(err))
		return nil, &SubmitError{Stage: StageSubmit, QuizID: quizID, Err: err}
	}
	return c.FetchResult(ctx, quizID, resultID)
}

// FetchResult loads the result of an attempt the server already recorded.
func (c *Coordinator) FetchResult(ctx context.Context, quizID, resultID string) (*quiz.Result, error) {
	result, err := c.backend.GetResult(ctx, resultID)
	if err != nil {
		c.logger.Warn("result fetch failed", zap.String("quiz_id", quizID), zap.String("result_id", resultID), zap.Error(err))
		return nil, &SubmitError{Stage: StageFetchResult, QuizID: quizID, ResultID: resultID, Err: err}
	}
	if _, err := ResultPercentage(result); err != nil {
		c.logger.Warn("result unusable", zap.String("quiz_id", quizID), zap.String("result_id", resultID), zap.Error(err))
		return nil, &SubmitError{Stage: StageInvalidResult, QuizID: quizID, ResultID: resultID, Err: err}
	}

	c.logger.Info("submission scored",
		zap.String("quiz_id", quizID),
		zap.String("result_id", resultID),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
	)
	return result, nil
}

// SubmitAnswers is Format followed by Submit.
func (c *Coordinator) SubmitAnswers(ctx context.Context, quizID string, answers quiz.AnswerMap) (*quiz.Result, error) {
	return c.Submit(ctx, quizID, Format(answers))
}
