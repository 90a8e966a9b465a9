// Package report shows a scored result: percentage, band, the written
// analysis and a per-question review.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/layout"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// ResultFetcher loads a result by id.
type ResultFetcher interface {
	GetResult(ctx context.Context, id string) (*quiz.Result, error)
}

type resultLoadedMsg struct {
	result *quiz.Result
	err    error
}

// ReportScreen renders one result. It scrolls when the review is taller
// than the terminal.
type ReportScreen struct {
	fetcher  ResultFetcher
	resultID string
	result   *quiz.Result
	errMsg   string
	offset   int
}

var _ screen.Screen = (*ReportScreen)(nil)
var _ screen.KeyHintProvider = (*ReportScreen)(nil)

// New creates a ReportScreen that loads result id on Init.
func New(fetcher ResultFetcher, id string) *ReportScreen {
	return &ReportScreen{fetcher: fetcher, resultID: id}
}

// FromResult shows an already loaded result.
func FromResult(r *quiz.Result) *ReportScreen {
	return &ReportScreen{result: r, resultID: r.ID}
}

func (s *ReportScreen) Init() tea.Cmd {
	if s.result != nil || s.fetcher == nil {
		return nil
	}
	f, id := s.fetcher, s.resultID
	return func() tea.Msg {
		r, err := f.GetResult(context.Background(), id)
		return resultLoadedMsg{result: r, err: err}
	}
}

func (s *ReportScreen) Title() string {
	return "Quiz Report"
}

func (s *ReportScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ReportScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultLoadedMsg:
		if msg.err != nil {
			s.errMsg = errorText(msg.err)
			return s, nil
		}
		s.result = msg.result
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.offset > 0 {
				s.offset--
			}
		case "down", "j":
			s.offset++
		case "pgup":
			s.offset = max(s.offset-10, 0)
		case "pgdown", " ":
			s.offset += 10
		case "home", "g":
			s.offset = 0
		}
	}
	return s, nil
}

func errorText(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}

func (s *ReportScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\nCould not load the report: " + s.errMsg)
	}
	if s.result == nil {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading report...")
	}

	cw := components.ContentWidth(width)
	lines := strings.Split(s.render(cw), "\n")

	maxOffset := max(len(lines)-height, 0)
	s.offset = min(s.offset, maxOffset)
	end := min(s.offset+height, len(lines))

	var b strings.Builder
	for _, line := range lines[s.offset:end] {
		b.WriteString(components.Centered(line, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *ReportScreen) render(cw int) string {
	r := s.result

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(components.Card(s.scoreCard(cw-6), cw))
	b.WriteString("\n")

	analysis := renderAnalysis(r.Analysis, cw-6)
	if analysis != "" {
		b.WriteString(components.Card(analysis, cw))
		b.WriteString("\n")
	}

	if r.Quiz != nil {
		b.WriteString("\n")
		b.WriteString(theme.Title.Width(cw).Render("Question review"))
		b.WriteString("\n\n")
		for i, q := range r.Quiz.Questions {
			b.WriteString(components.Card(reviewQuestion(i, q, r), cw))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *ReportScreen) scoreCard(w int) string {
	r := s.result
	title := "Quiz"
	if r.Quiz != nil && r.Quiz.Title != "" {
		title = r.Quiz.Title
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Render(title))
	b.WriteString("\n\n")

	pct, err := scoring.ResultPercentage(r)
	if err != nil {
		b.WriteString(theme.Hint.Render("This result has no scored questions."))
		return b.String()
	}
	band := scoring.BandFor(pct)

	b.WriteString(lipgloss.NewStyle().
		Foreground(components.BandColor(band)).
		Bold(true).
		Render(fmt.Sprintf("%d%%  %s", pct, band.Label())))
	b.WriteString("\n")
	b.WriteString(theme.Hint.Render(fmt.Sprintf("%d of %d correct", r.Score, r.TotalQuestions)))
	b.WriteString("\n\n")

	bar := components.NewProgressBar("", float64(pct)/100, false, w)
	bar.Fill = components.BandColor(band)
	b.WriteString(bar.View())
	return b.String()
}

func renderAnalysis(a quiz.Analysis, w int) string {
	sections := []struct {
		heading string
		items   []string
	}{
		{"Strengths", a.Strengths},
		{"Areas to improve", a.Weaknesses},
		{"Recommendations", a.Recommendations},
	}

	var b strings.Builder
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(sec.heading))
		b.WriteString("\n")
		for _, item := range sec.items {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Width(w).Render("• " + item))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func reviewQuestion(i int, q quiz.Question, r *quiz.Result) string {
	rec, answered := r.AnswerFor(q.ID)
	mc := components.MultiChoice{
		Question: fmt.Sprintf("%d. %s", i+1, q.Text),
		Options:  q.Options,
		Cursor:   -1,
		Review:   true,
		Correct:  q.CorrectAnswer,
	}
	if answered {
		mc.Chosen = rec.SelectedAnswer
	}

	var b strings.Builder
	b.WriteString(mc.View(60))
	if !answered {
		b.WriteString(theme.Hint.Render("Not answered"))
		b.WriteString("\n")
	}
	if q.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Width(60).Render(q.Explanation))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Plain writes the report as uncolored text, for the report command.
func Plain(w io.Writer, r *quiz.Result) error {
	title := "Quiz"
	if r.Quiz != nil && r.Quiz.Title != "" {
		title = r.Quiz.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	if pct, err := scoring.ResultPercentage(r); err == nil {
		fmt.Fprintf(&b, "Score: %d/%d (%d%%, %s)\n", r.Score, r.TotalQuestions, pct, scoring.BandFor(pct).Label())
	} else {
		fmt.Fprintf(&b, "Score: no scored questions\n")
	}

	for _, sec := range []struct {
		heading string
		items   []string
	}{
		{"Strengths", r.Analysis.Strengths},
		{"Areas to improve", r.Analysis.Weaknesses},
		{"Recommendations", r.Analysis.Recommendations},
	} {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", sec.heading)
		for _, item := range sec.items {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}

	if r.Quiz != nil {
		b.WriteString("\nReview:\n")
		for i, q := range r.Quiz.Questions {
			rec, ok := r.AnswerFor(q.ID)
			mark := "unanswered"
			switch {
			case ok && rec.IsCorrect:
				mark = "correct"
			case ok:
				mark = fmt.Sprintf("wrong, chose %q", rec.SelectedAnswer)
			}
			fmt.Fprintf(&b, "  %d. %s [%s]\n", i+1, q.Text, mark)
			if q.CorrectAnswer != "" {
				fmt.Fprintf(&b, "     answer: %s\n", q.CorrectAnswer)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
