// Package login is the sign-in and registration screen.
package login

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/screen"
	"github.com/abhisek/quizcraft/internal/ui/components"
	"github.com/abhisek/quizcraft/internal/ui/layout"
	"github.com/abhisek/quizcraft/internal/ui/theme"
)

// Authenticator is the part of the API client the screen needs.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Register(ctx context.Context, reg api.Registration) error
}

// TokenSink stores the token returned by a successful login.
type TokenSink interface {
	SignIn(ctx context.Context, token string) error
}

type field int

const (
	fieldUsername field = iota
	fieldEmail
	fieldPassword
)

type loginDoneMsg struct{ err error }

type registerDoneMsg struct {
	email string
	err   error
}

// LoginScreen collects credentials and signs the learner in. Tab toggles
// between signing in and creating an account.
type LoginScreen struct {
	auth    Authenticator
	session TokenSink
	next    func() screen.Screen

	register bool
	inputs   [3]components.TextInput
	focus    field
	busy     bool
	errMsg   string
	notice   string
}

var _ screen.Screen = (*LoginScreen)(nil)
var _ screen.KeyHintProvider = (*LoginScreen)(nil)

// New creates a LoginScreen. next builds the screen shown after sign-in.
func New(a Authenticator, session TokenSink, next func() screen.Screen) *LoginScreen {
	s := &LoginScreen{auth: a, session: session, next: next, focus: fieldEmail}
	s.inputs[fieldUsername] = components.NewTextInput("Username", "at least 3 characters", 32)
	s.inputs[fieldEmail] = components.NewTextInput("Email", "you@example.com", 254)
	s.inputs[fieldPassword] = components.NewPasswordInput("Password")
	return s
}

func (s *LoginScreen) Init() tea.Cmd {
	return s.inputs[s.focus].Focus()
}

func (s *LoginScreen) Title() string {
	if s.register {
		return "Create account"
	}
	return "Sign in"
}

func (s *LoginScreen) KeyHints() []layout.KeyHint {
	toggle := "Create account"
	if s.register {
		toggle = "Sign in instead"
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl+R", Description: toggle},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *LoginScreen) fields() []field {
	if s.register {
		return []field{fieldUsername, fieldEmail, fieldPassword}
	}
	return []field{fieldEmail, fieldPassword}
}

func (s *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = userMessage(msg.err)
			return s, nil
		}
		next := s.next()
		return s, func() tea.Msg { return router.ResetScreenMsg{Screen: next} }

	case registerDoneMsg:
		s.busy = false
		if msg.err != nil {
			s.errMsg = userMessage(msg.err)
			return s, nil
		}
		s.register = false
		s.notice = "Account created. Sign in to continue."
		s.inputs[fieldPassword].SetValue("")
		return s, s.moveFocus(fieldPassword)

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		switch msg.String() {
		case "ctrl+r":
			s.register = !s.register
			s.errMsg, s.notice = "", ""
			s.clearFieldErrors()
			return s, s.moveFocus(s.fields()[0])
		case "tab", "down":
			return s, s.step(1)
		case "shift+tab", "up":
			return s, s.step(-1)
		case "enter":
			fs := s.fields()
			if s.focus != fs[len(fs)-1] {
				return s, s.step(1)
			}
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *LoginScreen) step(delta int) tea.Cmd {
	fs := s.fields()
	idx := 0
	for i, f := range fs {
		if f == s.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(fs)) % len(fs)
	return s.moveFocus(fs[idx])
}

func (s *LoginScreen) moveFocus(f field) tea.Cmd {
	s.inputs[s.focus].Blur()
	s.focus = f
	return s.inputs[f].Focus()
}

func (s *LoginScreen) clearFieldErrors() {
	for i := range s.inputs {
		s.inputs[i].SetError("")
	}
}

// submit validates locally and starts the request. Validation failures
// never reach the network.
func (s *LoginScreen) submit() tea.Cmd {
	s.errMsg, s.notice = "", ""
	s.clearFieldErrors()

	username := s.inputs[fieldUsername].Value()
	email := s.inputs[fieldEmail].Value()
	password := s.inputs[fieldPassword].Model.Value()

	var err error
	if s.register {
		err = auth.ValidateRegistration(username, email, password)
	} else {
		err = auth.ValidateLogin(email, password)
	}
	var fe *auth.FieldError
	if errors.As(err, &fe) {
		f := fieldFor(fe.Field)
		s.inputs[f].SetError(fe.UserMessage())
		return s.moveFocus(f)
	}

	s.busy = true
	a, session := s.auth, s.session
	if s.register {
		return func() tea.Msg {
			err := a.Register(context.Background(), api.Registration{
				Username: username, Email: email, Password: password,
			})
			return registerDoneMsg{email: email, err: err}
		}
	}
	return func() tea.Msg {
		ctx := context.Background()
		token, err := a.Login(ctx, api.Credentials{Email: email, Password: password})
		if err == nil {
			err = session.SignIn(ctx, token)
		}
		return loginDoneMsg{err: err}
	}
}

func fieldFor(name string) field {
	switch name {
	case "username":
		return fieldUsername
	case "password":
		return fieldPassword
	default:
		return fieldEmail
	}
}

func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "Something went wrong. Please try again."
}

func (s *LoginScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var b strings.Builder
	heading := "Welcome back"
	if s.register {
		heading = "Create your account"
	}
	b.WriteString(theme.Title.Width(cw - 6).Render(heading))
	b.WriteString("\n\n")

	for _, f := range s.fields() {
		b.WriteString(s.inputs[f].View())
		b.WriteString("\n\n")
	}

	switch {
	case s.busy:
		b.WriteString(theme.Hint.Render("Contacting server..."))
	case s.errMsg != "":
		b.WriteString(theme.ErrorText.Render(s.errMsg))
	case s.notice != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Success).Render(s.notice))
	}

	card := components.Card(b.String(), cw)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
