package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuiz() *Quiz {
	return &Quiz{
		ID:    "Q1",
		Title: "Cell Biology",
		Questions: []Question{
			{ID: 1, Text: "Powerhouse of the cell?", Options: []string{"A", "B", "C"}, CorrectAnswer: "A"},
			{ID: 2, Text: "Site of protein synthesis?", Options: []string{"A", "B", "C"}, CorrectAnswer: "B"},
			{ID: 3, Text: "Control centre?", Options: []string{"A", "B", "C"}, CorrectAnswer: "C"},
		},
	}
}

func readySession(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	require.NoError(t, s.Load("Q1"))
	require.NoError(t, s.ApplyQuiz(testQuiz(), nil))
	require.Equal(t, StatusReady, s.Status())
	return s
}

func TestLoad_Success(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Load("Q1"))
	assert.Equal(t, StatusLoading, s.Status())

	for range 3 {
		s.Tick()
	}
	require.NoError(t, s.ApplyQuiz(testQuiz(), nil))

	assert.Equal(t, StatusReady, s.Status())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, 0, s.Answered())
	assert.Equal(t, 0, s.ElapsedSeconds())
}

func TestLoad_FailureIsTerminal(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Load("Q1"))
	require.NoError(t, s.ApplyQuiz(nil, errors.New("not found")))

	assert.Equal(t, StatusFailed, s.Status())
	assert.EqualError(t, s.LoadErr(), "not found")

	err := s.Load("Q1")
	assert.ErrorIs(t, err, ErrStateViolation)
	assert.Equal(t, StatusFailed, s.Status())
}

func TestLoad_EmptyQuizFails(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Load("Q1"))
	require.NoError(t, s.ApplyQuiz(&Quiz{ID: "Q1"}, nil))
	assert.Equal(t, StatusFailed, s.Status())
}

func TestLoad_OnlyFromNew(t *testing.T) {
	s := readySession(t)
	err := s.Load("Q2")

	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
	assert.Equal(t, "Q1", s.QuizID())
}

func TestSelectAnswer_Overwrite(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	require.NoError(t, s.SelectAnswer(1, "B"))

	got, ok := s.Answer(1)
	require.True(t, ok)
	assert.Equal(t, "B", got)
	assert.Equal(t, 1, s.Answered())
}

func TestSelectAnswer_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		questionID int
		answer     string
	}{
		{"unknown question", 9, "A"},
		{"answer not an option", 1, "Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := readySession(t)
			err := s.SelectAnswer(tt.questionID, tt.answer)
			assert.ErrorIs(t, err, ErrStateViolation)
			assert.Equal(t, 0, s.Answered())
		})
	}
}

func TestSelectAnswer_NotReady(t *testing.T) {
	s := NewSession()
	assert.ErrorIs(t, s.SelectAnswer(1, "A"), ErrStateViolation)
}

func TestSelectOption(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.GoTo(2))
	require.NoError(t, s.SelectOption(2))

	got, _ := s.Answer(3)
	assert.Equal(t, "C", got)
	assert.ErrorIs(t, s.SelectOption(3), ErrStateViolation)
}

func TestGoTo_FreeNavigation(t *testing.T) {
	s := readySession(t)

	require.NoError(t, s.GoTo(2))
	assert.Equal(t, 2, s.CurrentIndex())

	require.NoError(t, s.Prev())
	assert.Equal(t, 1, s.CurrentIndex())

	assert.ErrorIs(t, s.GoTo(3), ErrStateViolation)
	assert.ErrorIs(t, s.GoTo(-1), ErrStateViolation)
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestTick_AnyState(t *testing.T) {
	s := NewSession()
	s.Tick()
	require.NoError(t, s.Load("Q1"))
	require.NoError(t, s.ApplyQuiz(testQuiz(), nil))
	s.Tick()
	require.NoError(t, s.SelectAnswer(1, "A"))
	_, err := s.Submit()
	require.NoError(t, err)
	s.Tick()
	s.Tick()

	assert.Equal(t, StatusSubmitting, s.Status())
	assert.Equal(t, 3, s.ElapsedSeconds())
}

func TestSubmit_RequiresCurrentAnswered(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	require.NoError(t, s.GoTo(1))

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrStateViolation)
	assert.Equal(t, StatusReady, s.Status())
}

func TestSubmit_OutsideReadyHasNoEffect(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	_, err := s.Submit()
	require.NoError(t, err)

	before := s.Answers()
	idx := s.CurrentIndex()

	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrStateViolation)
	assert.Equal(t, StatusSubmitting, s.Status())
	assert.Equal(t, before, s.Answers())
	assert.Equal(t, idx, s.CurrentIndex())
}

func TestSubmit_ReturnsCopy(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))

	sent, err := s.Submit()
	require.NoError(t, err)
	sent[1] = "C"

	got, _ := s.Answer(1)
	assert.Equal(t, "A", got)
}

func TestApplySubmission_FailurePreservesAnswers(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	require.NoError(t, s.GoTo(2))
	require.NoError(t, s.SelectAnswer(3, "C"))

	before := s.Answers()
	_, err := s.Submit()
	require.NoError(t, err)

	require.NoError(t, s.ApplySubmission(nil, errors.New("502 bad gateway")))

	assert.Equal(t, StatusReady, s.Status())
	assert.Equal(t, before, s.Answers())
	assert.Equal(t, 2, s.CurrentIndex())
	assert.EqualError(t, s.LastSubmitErr(), "502 bad gateway")

	// Retry succeeds without re-answering.
	_, err = s.Submit()
	require.NoError(t, err)
	assert.NoError(t, s.LastSubmitErr())
}

func TestApplySubmission_Success(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	_, err := s.Submit()
	require.NoError(t, err)

	r := &Result{ID: "R1", Score: 1, TotalQuestions: 3}
	require.NoError(t, s.ApplySubmission(r, nil))

	assert.Equal(t, StatusCompleted, s.Status())
	assert.Same(t, r, s.Result())
	assert.ErrorIs(t, s.GoTo(0), ErrStateViolation)
}

func TestScenario_PartialAnswersSubmit(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	require.NoError(t, s.GoTo(2))
	require.NoError(t, s.SelectAnswer(3, "C"))

	sent, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, AnswerMap{1: "A", 3: "C"}, sent)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "submitting", StatusSubmitting.String())
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SelectAnswer(1, "A"))
	s.Tick()

	snap := s.Snapshot()
	assert.Equal(t, "Q1", snap.QuizID)
	assert.Equal(t, 1, snap.Answered)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.Elapsed)

	snap.Answers[2] = "B"
	_, ok := s.Answer(2)
	assert.False(t, ok)

	answered, total := NewSession().Progress()
	assert.Zero(t, answered)
	assert.Zero(t, total)
}
