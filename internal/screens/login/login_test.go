package login

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/router"
	"github.com/abhisek/quizcraft/internal/screen"
)

type fakeAuth struct {
	token     string
	loginErr  error
	logins    int
	registers []api.Registration
}

func (f *fakeAuth) Login(_ context.Context, creds api.Credentials) (string, error) {
	f.logins++
	return f.token, f.loginErr
}

func (f *fakeAuth) Register(_ context.Context, reg api.Registration) error {
	f.registers = append(f.registers, reg)
	return nil
}

type fakeSink struct{ token string }

func (f *fakeSink) SignIn(_ context.Context, token string) error {
	f.token = token
	return nil
}

type stubScreen struct{}

func (stubScreen) Init() tea.Cmd                           { return nil }
func (s stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (stubScreen) View(int, int) string                    { return "home" }
func (stubScreen) Title() string                           { return "Home" }

type userErr struct{}

func (userErr) Error() string       { return "http 400" }
func (userErr) UserMessage() string { return "Invalid email or password." }

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func newScreen(a *fakeAuth, sink *fakeSink) *LoginScreen {
	s := New(a, sink, func() screen.Screen { return stubScreen{} })
	s.Init()
	return s
}

func TestLogin_Success(t *testing.T) {
	a := &fakeAuth{token: "tok"}
	sink := &fakeSink{}
	s := newScreen(a, sink)
	s.inputs[fieldEmail].SetValue("asha@example.com")
	s.inputs[fieldPassword].SetValue("secret1")

	var scr screen.Screen = s
	scr, _ = scr.Update(specialKey(tea.KeyEnter)) // email → password
	if s.focus != fieldPassword {
		t.Fatalf("focus = %d, want password", s.focus)
	}
	scr, cmd := scr.Update(specialKey(tea.KeyEnter))
	if cmd == nil || !s.busy {
		t.Fatal("expected a login command")
	}

	_, cmd = scr.Update(cmd())
	if sink.token != "tok" {
		t.Errorf("token = %q, want tok", sink.token)
	}
	if cmd == nil {
		t.Fatal("expected navigation after login")
	}
	if _, ok := cmd().(router.ResetScreenMsg); !ok {
		t.Error("expected ResetScreenMsg")
	}
}

func TestLogin_ValidationNeverCallsServer(t *testing.T) {
	a := &fakeAuth{}
	s := newScreen(a, &fakeSink{})
	s.inputs[fieldEmail].SetValue("not-an-email")
	s.focus = fieldPassword
	s.inputs[fieldPassword].SetValue("x")

	s.Update(specialKey(tea.KeyEnter))

	if s.busy || a.logins != 0 {
		t.Error("invalid form must not reach the server")
	}
	if s.inputs[fieldEmail].Error() == "" {
		t.Error("expected an email error")
	}
	if s.focus != fieldEmail {
		t.Error("expected focus on the offending field")
	}
}

func TestLogin_ServerErrorShown(t *testing.T) {
	s := newScreen(&fakeAuth{loginErr: userErr{}}, &fakeSink{})
	s.Update(loginDoneMsg{err: userErr{}})
	if !strings.Contains(s.View(100, 30), "Invalid email or password.") {
		t.Error("expected server message in view")
	}

	s.Update(loginDoneMsg{err: errors.New("boom")})
	if s.errMsg != "Something went wrong. Please try again." {
		t.Errorf("errMsg = %q", s.errMsg)
	}
}

func TestRegister_ThenSignIn(t *testing.T) {
	a := &fakeAuth{}
	s := newScreen(a, &fakeSink{})

	s.Update(tea.KeyPressMsg{Code: 'r', Mod: tea.ModCtrl})
	if !s.register || s.focus != fieldUsername {
		t.Fatal("expected register mode with focus on username")
	}
	if s.Title() != "Create account" {
		t.Errorf("title = %q", s.Title())
	}

	s.inputs[fieldUsername].SetValue("asha")
	s.inputs[fieldEmail].SetValue("asha@example.com")
	s.inputs[fieldPassword].SetValue("secret1")
	s.focus = fieldPassword

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected register command")
	}
	s.Update(cmd())

	if len(a.registers) != 1 || a.registers[0].Username != "asha" {
		t.Fatalf("registers = %+v", a.registers)
	}
	if s.register {
		t.Error("expected to return to sign-in mode")
	}
	if s.notice == "" {
		t.Error("expected a notice after registering")
	}
}

func TestLogin_TypingGoesToFocusedField(t *testing.T) {
	s := newScreen(&fakeAuth{}, &fakeSink{})
	s.Update(keyPress('a'))
	if got := s.inputs[fieldEmail].Value(); got != "a" {
		t.Errorf("email = %q, want a", got)
	}
}
