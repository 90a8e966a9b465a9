package attempt

import (
	"time"

	"github.com/abhisek/quizcraft/internal/quiz"
)

// quizLoadedMsg carries the fetched quiz or the fetch error.
type quizLoadedMsg struct {
	quiz *quiz.Quiz
	err  error
}

// submittedMsg carries the scored result or the submission error.
type submittedMsg struct {
	result *quiz.Result
	err    error
}

// tickMsg drives the elapsed timer.
type tickMsg time.Time
