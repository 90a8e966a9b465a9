package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Reply is a scripted answer for Mock.
type Reply struct {
	JSON  string
	Usage Usage
	Err   error
}

// Mock is an offline Provider. Scripted replies are served first, in
// order; after that it answers from built-in fixtures for the prompt's
// task. Replies are validated like a real provider's.
type Mock struct {
	mu      sync.Mutex
	script  []Reply
	prompts []Prompt
}

// NewMock creates a Mock that serves replies before falling back to
// fixtures.
func NewMock(replies ...Reply) *Mock {
	return &Mock{script: replies}
}

func (m *Mock) Complete(_ context.Context, p Prompt) (*Completion, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	var r Reply
	if len(m.script) > 0 {
		r, m.script = m.script[0], m.script[1:]
	} else {
		r = fixture(p)
	}
	m.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	out, err := checkOutput("mock", p.Output, r.JSON)
	if err != nil {
		return nil, err
	}
	return &Completion{JSON: out, Model: "mock", Usage: r.Usage}, nil
}

func (m *Mock) Model() string { return "mock" }

// Prompts returns every prompt received so far.
func (m *Mock) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.prompts...)
}

// fixture builds a canned reply for p's task.
func fixture(p Prompt) Reply {
	switch p.Task {
	case TaskQuiz:
		return Reply{JSON: FixtureQuiz(max(p.Items, 1))}
	case TaskAnalysis:
		return Reply{JSON: FixtureAnalysis}
	}
	return Reply{Err: &Error{Provider: "mock", Kind: KindRejected, Err: fmt.Errorf("no fixture for task %q", p.Task)}}
}

// FixtureAnalysis is the mock's reply to TaskAnalysis.
const FixtureAnalysis = `{
  "strengths": ["Recalled the key definitions."],
  "weaknesses": ["Mixed up related terms."],
  "recommendations": ["Revise the chapter summary and retake the quiz."]
}`

// FixtureQuiz is the mock's reply to TaskQuiz: n sample questions whose
// correct answer is always "Option A".
func FixtureQuiz(n int) string {
	type item struct {
		Text          string   `json:"question_text"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
	}
	doc := struct {
		Title     string `json:"title"`
		Questions []item `json:"questions"`
	}{Title: "Practice quiz"}
	for i := range n {
		doc.Questions = append(doc.Questions, item{
			Text:          fmt.Sprintf("Sample question %d?", i+1),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "Option A",
			Explanation:   "Option A is the fixture answer.",
		})
	}
	b, _ := json.Marshal(doc)
	return string(b)
}
