package welcome

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	phase1End    = 500 * time.Millisecond
	phase2End    = 1500 * time.Millisecond
	totalDur     = 3000 * time.Millisecond
)

const cardTop = `╭──────────────────╮
│  Q. ___________  │
│                  │`

const cardBottom = `╰──────────────────╯`

type tickMsg time.Time

// WelcomeScreen shows a short splash, then hands over to the next screen
// on the first key press.
type WelcomeScreen struct {
	nextFactory  func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that replaces itself with the screen built
// by next.
func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{nextFactory: next}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		return w, w.transition()
	}

	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	next := w.nextFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	mark := -1
	if w.elapsed >= phase1End {
		mark = (w.tickCount / 3) % 4
	}
	card := strings.Join([]string{cardTop, optionRows(mark), cardBottom}, "\n")

	sections := []string{lipgloss.NewStyle().Foreground(theme.Secondary).Render(card)}

	if w.elapsed >= phase2End {
		sections = append(sections,
			"",
			RenderBanner(width),
			"",
			lipgloss.NewStyle().
				Foreground(theme.Text).
				Bold(true).
				Render("Turn any chapter into a quiz."),
			"",
			lipgloss.NewStyle().
				Foreground(theme.TextDim).
				Italic(true).
				Render("press any key to continue"),
		)
	}

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// optionRows renders the four options with a filled mark on option mark.
func optionRows(mark int) string {
	dot := func(i int) string {
		if i == mark {
			return "●"
		}
		return "○"
	}
	return fmt.Sprintf("│   %s A   %s B      │\n│   %s C   %s D      │", dot(0), dot(1), dot(2), dot(3))
}
