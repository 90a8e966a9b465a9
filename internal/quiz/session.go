package quiz

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a quiz attempt.
type Status int

const (
	StatusNew        Status = iota // No quiz requested yet
	StatusLoading                  // Quiz fetch in flight
	StatusReady                    // Answering
	StatusSubmitting               // Submission in flight
	StatusCompleted                // Result received
	StatusFailed                   // Quiz could not be loaded; terminal
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusSubmitting:
		return "submitting"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrStateViolation is wrapped by every StateError.
var ErrStateViolation = errors.New("state violation")

// StateError reports an operation invoked while its precondition was false.
// The session is left untouched when one is returned.
type StateError struct {
	Op     string
	Status Status
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s while %s: %s", e.Op, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s while %s", e.Op, e.Status)
}

func (e *StateError) Unwrap() error { return ErrStateViolation }

// Session is the state machine for one attempt at one quiz.
//
//	New → Loading → Ready → Submitting → Completed
//	                  ↑          │
//	                  └──────────┘ (submission failed)
//	Loading → Failed
//
// A Session is not safe for concurrent use. It is meant to be driven from a
// single event loop; network calls happen elsewhere and report back through
// ApplyQuiz and ApplySubmission.
type Session struct {
	quizID  string
	status  Status
	quiz    *Quiz
	current int
	answers AnswerMap
	elapsed int
	result  *Result
	loadErr error
	lastErr error
}

// NewSession returns a session that has not requested a quiz yet.
func NewSession() *Session {
	return &Session{answers: AnswerMap{}}
}

// Load marks the session as fetching quizID. Only valid on a fresh session;
// a failed session cannot be reloaded in place.
func (s *Session) Load(quizID string) error {
	if s.status != StatusNew {
		return s.violation("load", "session already started")
	}
	if quizID == "" {
		return s.violation("load", "empty quiz id")
	}
	s.quizID = quizID
	s.status = StatusLoading
	return nil
}

// ApplyQuiz completes a Load with the fetched quiz or the fetch error.
func (s *Session) ApplyQuiz(q *Quiz, err error) error {
	if s.status != StatusLoading {
		return s.violation("apply quiz", "")
	}
	if err == nil && (q == nil || len(q.Questions) == 0) {
		err = errors.New("quiz has no questions")
	}
	if err != nil {
		s.status = StatusFailed
		s.loadErr = err
		return nil
	}
	s.quiz = q
	s.current = 0
	s.answers = AnswerMap{}
	s.elapsed = 0
	s.status = StatusReady
	return nil
}

// SelectAnswer records answer for questionID, replacing any earlier choice.
func (s *Session) SelectAnswer(questionID int, answer string) error {
	if s.status != StatusReady {
		return s.violation("select answer", "")
	}
	q, ok := s.quiz.QuestionByID(questionID)
	if !ok {
		return s.violation("select answer", fmt.Sprintf("unknown question %d", questionID))
	}
	if !q.HasOption(answer) {
		return s.violation("select answer", fmt.Sprintf("%q is not an option of question %d", answer, questionID))
	}
	s.answers[questionID] = answer
	return nil
}

// SelectOption records the option at index for the current question.
func (s *Session) SelectOption(index int) error {
	if s.status != StatusReady {
		return s.violation("select option", "")
	}
	q := s.quiz.Questions[s.current]
	if index < 0 || index >= len(q.Options) {
		return s.violation("select option", fmt.Sprintf("option %d out of range", index))
	}
	return s.SelectAnswer(q.ID, q.Options[index])
}

// GoTo moves to the question at index. Navigation is free: the current
// question does not need an answer first.
func (s *Session) GoTo(index int) error {
	if s.status != StatusReady {
		return s.violation("go to", "")
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return s.violation("go to", fmt.Sprintf("index %d out of range", index))
	}
	s.current = index
	return nil
}

// Next moves one question forward.
func (s *Session) Next() error { return s.GoTo(s.current + 1) }

// Prev moves one question back.
func (s *Session) Prev() error { return s.GoTo(s.current - 1) }

// Tick advances the elapsed timer by one second. Valid in every state.
func (s *Session) Tick() {
	s.elapsed++
}

// Submit moves the session to Submitting and returns a copy of the answers
// to send. The question currently on screen must be answered. In any other
// state the session is unchanged.
func (s *Session) Submit() (AnswerMap, error) {
	if s.status != StatusReady {
		return nil, s.violation("submit", "")
	}
	id := s.quiz.Questions[s.current].ID
	if _, ok := s.answers[id]; !ok {
		return nil, s.violation("submit", fmt.Sprintf("question %d is unanswered", id))
	}
	s.status = StatusSubmitting
	s.lastErr = nil
	return s.answers.Clone(), nil
}

// ApplySubmission completes a Submit. On failure the session returns to
// Ready with answers and position exactly as they were.
func (s *Session) ApplySubmission(r *Result, err error) error {
	if s.status != StatusSubmitting {
		return s.violation("apply submission", "")
	}
	if err == nil && r == nil {
		err = errors.New("empty result")
	}
	if err != nil {
		s.status = StatusReady
		s.lastErr = err
		return nil
	}
	s.result = r
	s.status = StatusCompleted
	return nil
}

func (s *Session) violation(op, reason string) error {
	return &StateError{Op: op, Status: s.status, Reason: reason}
}

// QuizID returns the id passed to Load.
func (s *Session) QuizID() string { return s.quizID }

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// Quiz returns the loaded quiz, or nil before Ready.
func (s *Session) Quiz() *Quiz { return s.quiz }

// CurrentIndex returns the index of the question on screen.
func (s *Session) CurrentIndex() int { return s.current }

// Current returns the question on screen.
func (s *Session) Current() (Question, bool) {
	if s.quiz == nil || len(s.quiz.Questions) == 0 {
		return Question{}, false
	}
	return s.quiz.Questions[s.current], true
}

// Answer returns the recorded answer for a question.
func (s *Session) Answer(questionID int) (string, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() AnswerMap { return s.answers.Clone() }

// Answered returns how many questions have an answer.
func (s *Session) Answered() int { return len(s.answers) }

// ElapsedSeconds returns the seconds counted by Tick.
func (s *Session) ElapsedSeconds() int { return s.elapsed }

// Result returns the result once Completed.
func (s *Session) Result() *Result { return s.result }

// LoadErr returns the error that moved the session to Failed.
func (s *Session) LoadErr() error { return s.loadErr }

// LastSubmitErr returns the error from the most recent failed submission.
// It is cleared by the next Submit.
func (s *Session) LastSubmitErr() error { return s.lastErr }

// Progress returns the answered count and the number of questions.
func (s *Session) Progress() (answered, total int) {
	if s.quiz != nil {
		total = len(s.quiz.Questions)
	}
	return len(s.answers), total
}

// Snapshot is a read-only view of a session, safe to hand to renderers.
type Snapshot struct {
	QuizID   string
	Status   Status
	Current  int
	Answers  AnswerMap
	Elapsed  int
	Answered int
	Total    int
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() Snapshot {
	answered, total := s.Progress()
	return Snapshot{
		QuizID:   s.quizID,
		Status:   s.status,
		Current:  s.current,
		Answers:  s.answers.Clone(),
		Elapsed:  s.elapsed,
		Answered: answered,
		Total:    total,
	}
}
