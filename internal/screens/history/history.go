package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/scoring"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/layout"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// ResultLister lists the learner's past results.
type ResultLister interface {
	ListResults(ctx context.Context) ([]quiz.ResultSummary, error)
}

type historyLoadedMsg struct {
	Results []quiz.ResultSummary
	Err     error
}

// HistoryScreen lists past results, newest first. Enter opens the report.
type HistoryScreen struct {
	lister   ResultLister
	report   func(id string) screen.Screen
	now      func() time.Time
	results  []quiz.ResultSummary
	stats    scoring.Stats
	selected int
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen. report builds the screen for one result.
func New(lister ResultLister, report func(id string) screen.Screen) *HistoryScreen {
	return &HistoryScreen{lister: lister, report: report, now: time.Now}
}

func (s *HistoryScreen) Init() tea.Cmd {
	lister := s.lister
	return func() tea.Msg {
		results, err := lister.ListResults(context.Background())
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		slices.SortStableFunc(results, func(a, b quiz.ResultSummary) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
		return historyLoadedMsg{Results: results}
	}
}

func (s *HistoryScreen) Title() string {
	return "Past Results"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Open report"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "r", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = errorText(msg.Err)
			return s, nil
		}
		s.errMsg = ""
		s.results = msg.Results
		s.stats = scoring.Summarize(msg.Results, s.now())
		s.selected = min(s.selected, max(len(s.results)-1, 0))
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.results)-1 {
				s.selected++
			}
			return s, nil
		case "r":
			s.loaded = false
			return s, s.Init()
		case "enter":
			if s.selected < len(s.results) && s.report != nil {
				next := s.report(s.results[s.selected].ID)
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			}
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

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s\n\nPress r to retry.", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading results...")
	}
	if len(s.results) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No results yet. Take a quiz to see it here.")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		theme.Hint.Render(fmt.Sprintf("%d quizzes  ·  average %d%%  ·  best %d%%  ·  %d this week",
			s.stats.Total, s.stats.Average, s.stats.Best, s.stats.ThisWeek))))
	b.WriteString("\n\n")

	// Keep the selected row visible.
	rows := max(height-4, 1)
	start := 0
	if s.selected >= rows {
		start = s.selected - rows + 1
	}
	end := min(start+rows, len(s.results))

	for i := start; i < end; i++ {
		r := s.results[i]
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %-36s %2d/%-2d  ",
			prefix, r.CreatedAt.Local().Format("Jan 02, 2006"), clip(r.Title(), 36), r.Score, r.TotalQuestions)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)+components.ScoreBadge(r.Score, r.TotalQuestions)))
		b.WriteString("\n")
	}

	return b.String()
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
