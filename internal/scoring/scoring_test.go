package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/quiz"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total int
		want         int
	}{
		{8, 10, 80},
		{0, 10, 0},
		{10, 10, 100},
		{1, 8, 13}, // 12.5 rounds up
		{2, 3, 67},
		{1, 3, 33},
		{5, 8, 63}, // 62.5 rounds up
		{3, 5, 60},
	}
	for _, tt := range tests {
		got, err := Percentage(tt.score, tt.total)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%d/%d", tt.score, tt.total)
	}
}

func TestPercentage_ZeroTotal(t *testing.T) {
	_, err := Percentage(0, 0)
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, err = Percentage(-1, 4)
	assert.Error(t, err)
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		pct  int
		want Band
	}{
		{100, BandHigh},
		{80, BandHigh},
		{79, BandMid},
		{60, BandMid},
		{59, BandLow},
		{0, BandLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.pct), "pct=%d", tt.pct)
	}
}

func TestPercentageAndBandAgreeAtBoundary(t *testing.T) {
	pct, err := ResultPercentage(&quiz.Result{Score: 8, TotalQuestions: 10})
	require.NoError(t, err)
	assert.Equal(t, 80, pct)
	assert.Equal(t, BandHigh, BandFor(pct))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	results := []quiz.ResultSummary{
		{ID: "a", Score: 8, TotalQuestions: 10, CreatedAt: now.Add(-time.Hour)},
		{ID: "b", Score: 1, TotalQuestions: 2, CreatedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: "c", Score: 2, TotalQuestions: 3, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "d", Score: 0, TotalQuestions: 0, CreatedAt: now.Add(-20 * 24 * time.Hour)},
	}

	st := Summarize(results, now)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 80, st.Best)
	assert.Equal(t, 66, st.Average) // (80+50+67)/3 = 65.67
	assert.Equal(t, 2, st.ThisWeek)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil, time.Now()))
}

func TestFormat_OmitsUnanswered(t *testing.T) {
	got := Format(quiz.AnswerMap{3: "C", 1: "A"})
	assert.ElementsMatch(t, []quiz.SubmittedAnswer{
		{QuestionID: 1, SelectedAnswer: "A"},
		{QuestionID: 3, SelectedAnswer: "C"},
	}, got)

	assert.Empty(t, Format(nil))
}

type fakeBackend struct {
	submitErr  error
	resultErrs []error
	result     *quiz.Result

	submits []string
	fetches []string
	records [][]quiz.SubmittedAnswer
}

func (f *fakeBackend) SubmitAnswers(_ context.Context, quizID string, answers []quiz.SubmittedAnswer) (string, error) {
	f.submits = append(f.submits, quizID)
	f.records = append(f.records, answers)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "R-" + quizID, nil
}

func (f *fakeBackend) GetResult(_ context.Context, resultID string) (*quiz.Result, error) {
	f.fetches = append(f.fetches, resultID)
	if len(f.resultErrs) > 0 {
		err := f.resultErrs[0]
		f.resultErrs = f.resultErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

func TestCoordinator_Submit(t *testing.T) {
	b := &fakeBackend{result: &quiz.Result{ID: "R-Q1", Score: 2, TotalQuestions: 3}}
	c := NewCoordinator(b, nil)

	r, err := c.SubmitAnswers(context.Background(), "Q1", quiz.AnswerMap{1: "A", 3: "C"})
	require.NoError(t, err)
	assert.Equal(t, "R-Q1", r.ID)
	assert.Equal(t, []string{"Q1"}, b.submits)
	assert.Equal(t, []string{"R-Q1"}, b.fetches)
	assert.Len(t, b.records[0], 2)
}

func TestCoordinator_SubmitFailure(t *testing.T) {
	b := &fakeBackend{submitErr: errors.New("connection refused")}
	c := NewCoordinator(b, nil)

	_, err := c.Submit(context.Background(), "Q1", nil)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSubmit, se.Stage)
	assert.Contains(t, se.UserMessage(), "answers have been kept")
	assert.Empty(t, b.fetches)
}

func TestCoordinator_FetchFailureReportsRecordedAttempt(t *testing.T) {
	b := &fakeBackend{
		resultErrs: []error{errors.New("timeout")},
		result:     &quiz.Result{ID: "R-Q1", Score: 1, TotalQuestions: 1},
	}
	c := NewCoordinator(b, nil)

	_, err := c.SubmitAnswers(context.Background(), "Q1", quiz.AnswerMap{1: "A"})
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFetchResult, se.Stage)
	assert.Equal(t, "R-Q1", se.ResultID)
	assert.True(t, se.Recorded())
	assert.True(t, se.Retryable())
	assert.Contains(t, se.UserMessage(), "recorded")

	r, err := c.FetchResult(context.Background(), "Q1", se.ResultID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Score)
	assert.Equal(t, []string{"Q1"}, b.submits)
	assert.Equal(t, []string{"R-Q1", "R-Q1"}, b.fetches)
}

func TestCoordinator_EveryAttemptIsSent(t *testing.T) {
	b := &fakeBackend{
		resultErrs: []error{errors.New("timeout")},
		result:     &quiz.Result{ID: "R-Q1", Score: 1, TotalQuestions: 1},
	}
	c := NewCoordinator(b, nil)

	_, err := c.SubmitAnswers(context.Background(), "Q1", quiz.AnswerMap{1: "A"})
	require.Error(t, err)

	// A later submit for the same quiz is a new attempt with its own answers.
	_, err = c.SubmitAnswers(context.Background(), "Q1", quiz.AnswerMap{1: "B"})
	require.NoError(t, err)
	require.Len(t, b.records, 2)
	assert.Equal(t, []quiz.SubmittedAnswer{{QuestionID: 1, SelectedAnswer: "B"}}, b.records[1])
}

func TestCoordinator_ZeroQuestionResultIsTerminal(t *testing.T) {
	b := &fakeBackend{result: &quiz.Result{ID: "R-Q1"}}
	c := NewCoordinator(b, nil)

	_, err := c.Submit(context.Background(), "Q1", nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageInvalidResult, se.Stage)
	assert.False(t, se.Retryable())
	assert.True(t, se.Recorded())
	assert.Contains(t, se.UserMessage(), "Past results")

	b.result = &quiz.Result{ID: "R-Q1", Score: 1, TotalQuestions: 1}
	_, err = c.Submit(context.Background(), "Q1", nil)
	require.NoError(t, err)
	assert.Len(t, b.submits, 2, "the coordinator keeps no stale result id")
	assert.Equal(t, []string{"R-Q1", "R-Q1"}, b.fetches)
}

type userErr struct{}

func (userErr) Error() string       { return "http 500" }
func (userErr) UserMessage() string { return "The server had a problem." }

func TestSubmitError_UserMessageUsesCause(t *testing.T) {
	e := &SubmitError{Stage: StageSubmit, QuizID: "Q1", Err: userErr{}}
	assert.Equal(t, "The server had a problem. Your answers have been kept, so you can try again.", e.UserMessage())
}
