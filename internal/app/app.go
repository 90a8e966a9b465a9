package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/catalog"
	"github.com/abhisek/quizcraft/internal/generate"
	"github.com/abhisek/quizcraft/internal/quiz"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/screens/attempt"
	"github.com/abhisek/quizcraft/internal/screens/configure"
	"github.com/abhisek/quizcraft/internal/screens/history"
	"github.com/abhisek/quizcraft/internal/screens/home"
	"github.com/abhisek/quizcraft/internal/screens/login"
	"github.com/abhisek/quizcraft/internal/screens/report"
	"github.com/abhisek/quizcraft/internal/screens/welcome"
	"github.com/abhisek/quizcraft/internal/ui/layout"
)

// Backend is everything the screens need from the quiz service.
// *api.Client satisfies it.
type Backend interface {
	catalog.Lister
	configure.Generator
	attempt.QuizFetcher
	report.ResultFetcher
	history.ResultLister
	login.Authenticator
}

// Session is the sign-in state shared by every screen.
type Session interface {
	login.TokenSink
	SignOut(ctx context.Context) error
	User() (auth.User, bool)
	SignedIn() bool
	Subscribe(fn func())
}

// Start picks the first screen after the splash.
type Start int

const (
	StartHome Start = iota
	StartConfigure
)

// Options wires the application.
type Options struct {
	Backend   Backend
	Session   Session
	Submitter attempt.Submitter
	Logger    *zap.Logger

	Defaults generate.Options
	Catalog  []catalog.Option

	SkipWelcome bool
	Start       Start
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	opts   Options
	router *router.Router
	width  int
	height int
}

// newAppModel creates the model, starting at the splash screen unless
// SkipWelcome is set.
func newAppModel(opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := AppModel{opts: opts}

	var first screen.Screen
	if opts.SkipWelcome {
		first = m.entryScreen()
	} else {
		first = welcome.New(m.entryScreen)
	}
	m.router = router.New(first)
	return m
}

// entryScreen is login when signed out, home otherwise.
func (m AppModel) entryScreen() screen.Screen {
	if !m.opts.Session.SignedIn() {
		return m.loginScreen()
	}
	return m.homeScreen()
}

func (m AppModel) loginScreen() screen.Screen {
	return login.New(m.opts.Backend, m.opts.Session, m.homeScreen)
}

func (m AppModel) homeScreen() screen.Screen {
	user, _ := m.opts.Session.User()
	return home.New(home.Options{
		Results: m.opts.Backend,
		User:    user.Username,
		NewQuiz: m.configureScreen,
		History: m.historyScreen,
		SignOut: m.opts.Session.SignOut,
	})
}

func (m AppModel) configureScreen() screen.Screen {
	return configure.New(configure.Options{
		Lister:    m.opts.Backend,
		Generator: m.opts.Backend,
		Defaults:  m.opts.Defaults,
		Catalog:   m.opts.Catalog,
		Logger:    m.opts.Logger,
		Next:      m.attemptScreen,
	})
}

func (m AppModel) attemptScreen(quizID string) screen.Screen {
	return attempt.New(quizID, m.opts.Backend, m.opts.Submitter, m.opts.Logger,
		func(r *quiz.Result) screen.Screen { return report.FromResult(r) })
}

func (m AppModel) historyScreen() screen.Screen {
	return history.New(m.opts.Backend, func(id string) screen.Screen {
		return report.New(m.opts.Backend, id)
	})
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.router.Active().Init()}
	if m.opts.Start == StartConfigure && m.opts.SkipWelcome && m.opts.Session.SignedIn() {
		cmds = append(cmds, m.router.Push(m.configureScreen()))
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screen.SignedOutMsg:
		m.opts.Logger.Info("signed out", zap.String("reason", msg.Reason))
		return m, m.router.Reset(m.loginScreen())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if bh, ok := m.router.Active().(screen.BackHandler); ok && bh.CapturesBack() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the full frame for the current terminal size.
func (m AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	user, _ := m.opts.Session.User()
	header := layout.RenderHeader(title, user.Username, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(m.height-headerHeight-footerHeight, 0)

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program. A token rejected by the server at
// any point sends the learner back to sign-in.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(newAppModel(opts), tea.WithContext(ctx))
	opts.Session.Subscribe(func() {
		p.Send(screen.SignedOutMsg{Reason: "session expired"})
	})
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
