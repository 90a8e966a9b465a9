package quiz

import (
	"maps"
	"slices"
	"time"
)

// Quiz is a generated set of multiple-choice questions. Immutable once loaded.
type Quiz struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject,omitempty"`
	Questions []Question `json:"questions"`
}

// Question is a single multiple-choice item. CorrectAnswer and Explanation
// are carried for the report only and must not be shown while answering.
type Question struct {
	ID            int      `json:"question_id"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// HasOption reports whether answer is one of the question's options.
func (q Question) HasOption(answer string) bool {
	return slices.Contains(q.Options, answer)
}

// QuestionByID returns the question with the given id.
func (q *Quiz) QuestionByID(id int) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// AnswerMap maps question id to the chosen option. A missing key means
// the question is unanswered.
type AnswerMap map[int]string

// Clone returns a deep copy of the map.
func (m AnswerMap) Clone() AnswerMap {
	if m == nil {
		return AnswerMap{}
	}
	return maps.Clone(m)
}

// SubmittedAnswer is the wire record sent when submitting a quiz.
type SubmittedAnswer struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
}

// AnswerRecord is a graded answer as returned by the scoring service.
type AnswerRecord struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// Analysis is the AI-written feedback attached to a result.
type Analysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Result is a scored submission, joined with the quiz it was taken against.
type Result struct {
	ID             string         `json:"_id"`
	QuizID         string         `json:"quizId,omitempty"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
	Analysis       Analysis       `json:"analysis"`
	Quiz           *Quiz          `json:"quiz,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// AnswerFor returns the graded record for a question id.
func (r *Result) AnswerFor(questionID int) (AnswerRecord, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return AnswerRecord{}, false
}

// ResultSummary is one row of the past-results listing.
type ResultSummary struct {
	ID             string    `json:"_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CreatedAt      time.Time `json:"createdAt"`
	Quiz           QuizRef   `json:"quiz"`
}

// QuizRef is the slice of a quiz embedded in result listings.
type QuizRef struct {
	ID    string `json:"_id,omitempty"`
	Title string `json:"title"`
}

// Title returns the title of the quiz the result belongs to.
func (s ResultSummary) Title() string {
	if s.Quiz.Title == "" {
		return "Untitled quiz"
	}
	return s.Quiz.Title
}
