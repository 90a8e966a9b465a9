// Package attempt is the screen a learner answers a quiz on. All state lives
// in a quiz.Session; network calls run as commands and report back through
// messages.
package attempt

import (
	"context"
	"errors"
	"strconv"
	"time"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/layout"
)

// QuizFetcher loads a quiz by id.
type QuizFetcher interface {
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
}

// Submitter sends answers and returns the scored result. FetchResult loads
// the result of an attempt the server has already recorded.
type Submitter interface {
	SubmitAnswers(ctx context.Context, quizID string, answers quiz.AnswerMap) (*quiz.Result, error)
	FetchResult(ctx context.Context, quizID, resultID string) (*quiz.Result, error)
}

// AttemptScreen runs one attempt at one quiz.
type AttemptScreen struct {
	session   *quiz.Session
	fetcher   QuizFetcher
	submitter Submitter
	logger    *zap.Logger
	next      func(*quiz.Result) screen.Screen

	quizID      string
	cursor      int
	notice      string
	submitErr   string
	confirmQuit bool

	// recordedID is set once the server has stored this attempt but its
	// result could not be read. Answers are frozen from then on.
	recordedID string
	// resultLost is set when the recorded result is unusable.
	resultLost bool
}

var _ screen.Screen = (*AttemptScreen)(nil)
var _ screen.KeyHintProvider = (*AttemptScreen)(nil)
var _ screen.BackHandler = (*AttemptScreen)(nil)

// New creates an AttemptScreen for quizID. next builds the screen shown
// once the result is in.
func New(quizID string, fetcher QuizFetcher, submitter Submitter, logger *zap.Logger, next func(*quiz.Result) screen.Screen) *AttemptScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptScreen{
		session:   quiz.NewSession(),
		fetcher:   fetcher,
		submitter: submitter,
		logger:    logger.Named("attempt"),
		next:      next,
		quizID:    quizID,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (s *AttemptScreen) Init() tea.Cmd {
	if err := s.session.Load(s.quizID); err != nil {
		s.logger.Debug("load rejected", zap.Error(err))
		return nil
	}
	f, id := s.fetcher, s.quizID
	return tea.Batch(tick(), func() tea.Msg {
		q, err := f.GetQuiz(context.Background(), id)
		return quizLoadedMsg{quiz: q, err: err}
	})
}

func (s *AttemptScreen) Title() string {
	if q := s.session.Quiz(); q != nil && q.Title != "" {
		return q.Title
	}
	return "Quiz"
}

// CapturesBack keeps Esc from leaving an attempt without confirmation.
func (s *AttemptScreen) CapturesBack() bool {
	if s.resultLost {
		return false
	}
	st := s.session.Status()
	return st == quiz.StatusReady || st == quiz.StatusSubmitting
}

// locked reports whether answers can no longer change.
func (s *AttemptScreen) locked() bool {
	return s.recordedID != "" || s.resultLost
}

func (s *AttemptScreen) KeyHints() []layout.KeyHint {
	if s.confirmQuit {
		return []layout.KeyHint{
			{Key: "y", Description: "Leave quiz"},
			{Key: "n", Description: "Keep going"},
		}
	}
	if s.session.Status() != quiz.StatusReady || s.resultLost {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
	if s.recordedID != "" {
		return []layout.KeyHint{
			{Key: "r", Description: "Load result"},
			{Key: "Esc", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Option"},
		{Key: "Enter", Description: "Choose"},
		{Key: "←→", Description: "Question"},
		{Key: "s", Description: "Submit"},
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *AttemptScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		s.session.Tick()
		if st := s.session.Status(); st == quiz.StatusCompleted || st == quiz.StatusFailed || s.resultLost {
			return s, nil
		}
		return s, tick()

	case quizLoadedMsg:
		if err := s.session.ApplyQuiz(msg.quiz, msg.err); err != nil {
			s.logger.Debug("stale quiz response", zap.Error(err))
			return s, nil
		}
		if msg.err != nil {
			s.logger.Warn("load quiz", zap.String("quiz_id", s.quizID), zap.Error(msg.err))
		}
		s.syncCursor()
		return s, nil

	case submittedMsg:
		if err := s.session.ApplySubmission(msg.result, msg.err); err != nil {
			s.logger.Debug("stale submission response", zap.Error(err))
			return s, nil
		}
		if msg.err != nil {
			s.submitErr = userMessage(msg.err)
			s.logger.Warn("submit answers", zap.String("quiz_id", s.quizID), zap.Error(msg.err))
			var se *scoring.SubmitError
			if errors.As(msg.err, &se) {
				switch {
				case !se.Retryable():
					s.resultLost = true
				case se.Recorded():
					s.recordedID = se.ResultID
				}
			}
			return s, nil
		}
		next := s.next(s.session.Result())
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *AttemptScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirmQuit {
		switch key {
		case "y", "Y":
			s.confirmQuit = false
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "n", "N", "esc":
			s.confirmQuit = false
		}
		return s, nil
	}

	switch s.session.Status() {
	case quiz.StatusFailed:
		if key == "esc" || key == "enter" {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil
	case quiz.StatusReady:
	default:
		return s, nil
	}

	if s.locked() {
		return s.handleLockedKey(key)
	}

	q, _ := s.session.Current()
	switch key {
	case "esc":
		s.confirmQuit = true
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(q.Options)-1 {
			s.cursor++
		}
	case "enter", "space", " ":
		s.choose(s.cursor)
	case "right", "l", "n", "tab":
		s.move(s.session.Next())
	case "left", "h", "p", "shift+tab":
		s.move(s.session.Prev())
	case "s":
		return s, s.submit()
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
			s.choose(n - 1)
		}
	}
	return s, nil
}

// handleLockedKey serves an attempt the server already recorded: the only
// remaining actions are loading its result or leaving.
func (s *AttemptScreen) handleLockedKey(key string) (screen.Screen, tea.Cmd) {
	if s.resultLost {
		if key == "esc" || key == "enter" {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil
	}
	switch key {
	case "esc":
		s.confirmQuit = true
	case "r", "s", "enter":
		return s, s.fetchResult()
	}
	return s, nil
}

func (s *AttemptScreen) choose(index int) {
	if err := s.session.SelectOption(index); err != nil {
		s.logger.Debug("select option", zap.Int("index", index), zap.Error(err))
		return
	}
	s.cursor = index
	s.notice = ""
}

func (s *AttemptScreen) move(err error) {
	if err != nil {
		s.logger.Debug("navigate", zap.Error(err))
		return
	}
	s.notice = ""
	s.syncCursor()
}

// syncCursor puts the cursor on the recorded answer, or the first option.
func (s *AttemptScreen) syncCursor() {
	s.cursor = 0
	q, ok := s.session.Current()
	if !ok {
		return
	}
	if a, ok := s.session.Answer(q.ID); ok {
		for i, opt := range q.Options {
			if opt == a {
				s.cursor = i
			}
		}
	}
}

func (s *AttemptScreen) submit() tea.Cmd {
	answers, err := s.session.Submit()
	if err != nil {
		s.logger.Debug("submit rejected", zap.Error(err))
		if errors.Is(err, quiz.ErrStateViolation) && s.session.Status() == quiz.StatusReady {
			s.notice = "Answer this question before submitting."
		}
		return nil
	}
	s.notice, s.submitErr = "", ""
	sub, id := s.submitter, s.quizID
	return func() tea.Msg {
		r, err := sub.SubmitAnswers(context.Background(), id, answers)
		return submittedMsg{result: r, err: err}
	}
}

// fetchResult retries loading the result of the recorded attempt without
// sending the answers again.
func (s *AttemptScreen) fetchResult() tea.Cmd {
	if _, err := s.session.Submit(); err != nil {
		s.logger.Debug("result retry rejected", zap.Error(err))
		return nil
	}
	s.notice, s.submitErr = "", ""
	sub, quizID, resultID := s.submitter, s.quizID, s.recordedID
	return func() tea.Msg {
		r, err := sub.FetchResult(context.Background(), quizID, resultID)
		return submittedMsg{result: r, err: err}
	}
}

func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "The submission could not be sent. Your answers have been kept, so you can try again."
}
