package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/store"
)

// ErrSignedOut is returned by operations that need a token when none is held.
var ErrSignedOut = errors.New("not signed in")

// CredentialStore persists the token across runs.
type CredentialStore interface {
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (*store.Credential, error)
	Clear(ctx context.Context) error
}

// Session holds the bearer token. It is shared between the UI loop and
// request goroutines, so every field is guarded by mu.
type Session struct {
	creds  CredentialStore
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	user        User
	subscribers []func()
}

// NewSession creates a signed-out session. creds may be nil, in which case
// nothing is persisted.
func NewSession(creds CredentialStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{creds: creds, logger: logger.Named("auth"), now: time.Now}
}

// Restore loads a persisted token. Tokens that cannot be decoded or have
// expired are discarded.
func (s *Session) Restore(ctx context.Context) error {
	if s.creds == nil {
		return nil
	}
	cred, err := s.creds.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if cred == nil {
		return nil
	}

	claims, err := DecodeUnverified(cred.Token)
	if err != nil || claims.Expired(s.now()) {
		s.logger.Info("discarding stored token", zap.Error(err))
		return s.creds.Clear(ctx)
	}

	s.mu.Lock()
	s.token = cred.Token
	s.user = claims.user()
	s.mu.Unlock()
	return nil
}

// SignIn stores token as the current credential.
func (s *Session) SignIn(ctx context.Context, token string) error {
	claims, err := DecodeUnverified(token)
	if err != nil {
		return err
	}
	if s.creds != nil {
		if err := s.creds.Save(ctx, token); err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = claims.user()
	s.mu.Unlock()

	s.logger.Info("signed in", zap.String("user_id", claims.user().ID))
	return nil
}

// SignOut forgets the token locally and in the credential store.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = User{}
	s.mu.Unlock()

	if s.creds != nil {
		if err := s.creds.Clear(ctx); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	return nil
}

// CurrentToken returns the bearer token, or "" when signed out.
func (s *Session) CurrentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// OnUnauthorized is called when the server rejects the token. The token is
// dropped and subscribers are notified. It may be called from any goroutine.
func (s *Session) OnUnauthorized() {
	s.mu.Lock()
	hadToken := s.token != ""
	s.token = ""
	s.user = User{}
	subs := append([]func(){}, s.subscribers...)
	s.mu.Unlock()

	if !hadToken {
		return
	}

	s.logger.Warn("token rejected by server")
	if s.creds != nil {
		if err := s.creds.Clear(context.Background()); err != nil {
			s.logger.Error("clear stored token", zap.Error(err))
		}
	}
	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers fn to run after the token is rejected.
func (s *Session) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// User returns the signed-in identity.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.token != ""
}

// SignedIn reports whether a token is held.
func (s *Session) SignedIn() bool {
	return s.CurrentToken() != ""
}
