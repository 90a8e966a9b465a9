package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/quizcraft/internal/quiz"
)

// ErrNoQuestions is returned when a percentage is asked of a result with no
// questions. It signals a malformed result, not a zero score.
var ErrNoQuestions = errors.New("result has no questions")

// Percentage returns score/total*100 rounded half up.
func Percentage(score, total int) (int, error) {
	if total <= 0 {
		return 0, ErrNoQuestions
	}
	if score < 0 {
		return 0, fmt.Errorf("negative score %d", score)
	}
	// Integer form of floor(score*100/total + 0.5).
	return (score*200 + total) / (2 * total), nil
}

// ResultPercentage is Percentage applied to a result.
func ResultPercentage(r *quiz.Result) (int, error) {
	return Percentage(r.Score, r.TotalQuestions)
}

// Band is the qualitative tier of a percentage.
type Band string

const (
	BandHigh Band = "high"
	BandMid  Band = "mid"
	BandLow  Band = "low"
)

const (
	highThreshold = 80
	midThreshold  = 60
)

// BandFor maps a percentage to its band: [80,100] high, [60,80) mid,
// below 60 low. Every screen that shows a tier goes through here.
func BandFor(pct int) Band {
	switch {
	case pct >= highThreshold:
		return BandHigh
	case pct >= midThreshold:
		return BandMid
	default:
		return BandLow
	}
}

// Label returns a short human description of the band.
func (b Band) Label() string {
	switch b {
	case BandHigh:
		return "Excellent"
	case BandMid:
		return "Good effort"
	default:
		return "Keep practicing"
	}
}

// Stats summarizes a learner's past results.
type Stats struct {
	Total    int
	Average  int
	Best     int
	ThisWeek int
}

// Summarize computes dashboard stats. Results without questions are counted
// in Total and ThisWeek but excluded from Average and Best.
func Summarize(results []quiz.ResultSummary, now time.Time) Stats {
	st := Stats{Total: len(results)}
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var sum, scored int
	for _, r := range results {
		if r.CreatedAt.After(weekAgo) {
			st.ThisWeek++
		}
		pct, err := Percentage(r.Score, r.TotalQuestions)
		if err != nil {
			continue
		}
		sum += pct
		scored++
		if pct > st.Best {
			st.Best = pct
		}
	}
	if scored > 0 {
		st.Average = (2*sum + scored) / (2 * scored)
	}
	return st
}
