// Package home is the menu shown after sign-in, with stats drawn from the
// learner's past results.
package home

import (
	"context"
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

// Options wires the home screen to the rest of the app.
type Options struct {
	Results ResultLister
	User    string
	NewQuiz func() screen.Screen
	History func() screen.Screen
	SignOut func(ctx context.Context) error
	Now     func() time.Time
}

type statsLoadedMsg struct {
	stats  scoring.Stats
	recent []quiz.ResultSummary
	err    error
}

const recentCount = 3

// HomeScreen shows the main menu and a stats bar.
type HomeScreen struct {
	opts    Options
	menu    components.Menu
	stats   scoring.Stats
	recent  []quiz.ResultSummary
	loaded  bool
	loadErr string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates a HomeScreen.
func New(opts Options) *HomeScreen {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &HomeScreen{opts: opts}

	push := func(factory func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			s := factory()
			return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
		}
	}

	h.menu = components.NewMenu([]components.MenuItem{
		{Label: "New quiz", Hint: "from a chapter or a PDF", Action: push(opts.NewQuiz), Disabled: opts.NewQuiz == nil},
		{Label: "Past results", Hint: "review earlier attempts", Action: push(opts.History), Disabled: opts.History == nil},
		{Label: "Sign out", Action: h.signOut},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	})
	return h
}

func (h *HomeScreen) signOut() tea.Cmd {
	signOut := h.opts.SignOut
	return func() tea.Msg {
		if signOut != nil {
			// The local token is dropped even if clearing it fails.
			_ = signOut(context.Background())
		}
		return screen.SignedOutMsg{}
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Resume reloads stats when the learner comes back from another screen.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	if h.opts.Results == nil {
		return nil
	}
	results, now := h.opts.Results, h.opts.Now
	return func() tea.Msg {
		list, err := results.ListResults(context.Background())
		if err != nil {
			return statsLoadedMsg{err: err}
		}
		return statsLoadedMsg{stats: scoring.Summarize(list, now()), recent: latest(list, recentCount)}
	}
}

// latest returns the n most recent results, newest first.
func latest(list []quiz.ResultSummary, n int) []quiz.ResultSummary {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b quiz.ResultSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out[:min(n, len(out))]
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(statsLoadedMsg); ok {
		h.loaded = true
		if msg.err != nil {
			h.loadErr = "Stats unavailable right now."
			return h, nil
		}
		h.loadErr = ""
		h.stats = msg.stats
		h.recent = msg.recent
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	sections := []string{h.renderGreeting(cw), h.renderStats(cw)}
	if len(h.recent) > 0 && !layout.IsCompactHeight(height+layout.HeaderHeight+layout.FooterHeight) {
		sections = append(sections, h.renderRecent(cw))
	}
	sections = append(sections, components.Card(h.menu.View(), cw))

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (h *HomeScreen) renderGreeting(cw int) string {
	greeting := "Ready for a quiz?"
	if h.opts.User != "" {
		greeting = fmt.Sprintf("Hi %s, ready for a quiz?", h.opts.User)
	}
	return theme.Title.Width(cw).Render(greeting)
}

func (h *HomeScreen) renderStats(cw int) string {
	if !h.loaded {
		return theme.Subtitle.Width(cw).Render("Loading your stats...")
	}
	if h.loadErr != "" {
		return theme.Subtitle.Width(cw).Render(h.loadErr)
	}
	if h.stats.Total == 0 {
		return theme.Subtitle.Width(cw).Render("No quizzes taken yet. Start your first one below.")
	}

	cell := func(label string, value string) string {
		return lipgloss.NewStyle().Width((cw-4)/4).Align(lipgloss.Center).Render(
			lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(value) + "\n" +
				lipgloss.NewStyle().Foreground(theme.TextDim).Render(label))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top,
		cell("quizzes", fmt.Sprintf("%d", h.stats.Total)),
		cell("average", fmt.Sprintf("%d%%", h.stats.Average)),
		cell("best", fmt.Sprintf("%d%%", h.stats.Best)),
		cell("this week", fmt.Sprintf("%d", h.stats.ThisWeek)),
	)
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(cw).
		Render(row)
}

func (h *HomeScreen) renderRecent(cw int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render("Recent"))
	for _, r := range h.recent {
		b.WriteString("\n")
		title := truncate(r.Title(), cw-26)
		b.WriteString(fmt.Sprintf("%-*s %s", cw-24, title, components.ScoreBadge(r.Score, r.TotalQuestions)))
	}
	return components.Card(b.String(), cw)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if n < 2 || len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
