package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizcraft/internal/store"
)

type memCreds struct {
	mu    sync.Mutex
	token string
	saved bool
}

func (m *memCreds) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.saved = token, true
	return nil
}

func (m *memCreds) Load(_ context.Context) (*store.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return nil, nil
	}
	return &store.Credential{Token: m.token, SavedAt: time.Now()}, nil
}

func (m *memCreds) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.saved = "", false
	return nil
}

func issue(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := NewIssuer("test-secret", ttl).Issue(User{ID: "U1", Username: "asha", Email: "asha@example.com"})
	require.NoError(t, err)
	return tok
}

func TestIssuerRoundTrip(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	tok, err := iss.Issue(User{ID: "U1", Username: "asha", Email: "asha@example.com"})
	require.NoError(t, err)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.UserID)
	assert.Equal(t, "asha", claims.Username)

	_, err = NewIssuer("other-secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRejectsExpired(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	claims := &Claims{
		UserID: "U1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "quizcraft-devserver",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionSignInPersistsAndDecodesUser(t *testing.T) {
	creds := &memCreds{}
	s := NewSession(creds, nil)
	assert.False(t, s.SignedIn())

	tok := issue(t, time.Hour)
	require.NoError(t, s.SignIn(context.Background(), tok))

	assert.Equal(t, tok, s.CurrentToken())
	assert.Equal(t, tok, creds.token)
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, User{ID: "U1", Username: "asha", Email: "asha@example.com"}, u)
}

func TestSessionSignInRejectsGarbage(t *testing.T) {
	creds := &memCreds{}
	s := NewSession(creds, nil)
	assert.Error(t, s.SignIn(context.Background(), "not-a-jwt"))
	assert.False(t, creds.saved)
	assert.False(t, s.SignedIn())
}

func TestSessionRestore(t *testing.T) {
	creds := &memCreds{}
	require.NoError(t, creds.Save(context.Background(), issue(t, time.Hour)))

	s := NewSession(creds, nil)
	require.NoError(t, s.Restore(context.Background()))
	assert.True(t, s.SignedIn())
}

func TestSessionRestoreDropsExpired(t *testing.T) {
	creds := &memCreds{}
	require.NoError(t, creds.Save(context.Background(), issue(t, time.Hour)))

	s := NewSession(creds, nil)
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, s.Restore(context.Background()))
	assert.False(t, s.SignedIn())
	assert.False(t, creds.saved)
}

func TestOnUnauthorizedClearsAndNotifiesOnce(t *testing.T) {
	creds := &memCreds{}
	s := NewSession(creds, nil)
	require.NoError(t, s.SignIn(context.Background(), issue(t, time.Hour)))

	var calls int
	s.Subscribe(func() { calls++ })

	s.OnUnauthorized()
	s.OnUnauthorized()

	assert.Equal(t, 1, calls)
	assert.Empty(t, s.CurrentToken())
	assert.False(t, creds.saved)
}

func TestOnUnauthorizedConcurrent(t *testing.T) {
	s := NewSession(nil, nil)
	require.NoError(t, s.SignIn(context.Background(), issue(t, time.Hour)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CurrentToken()
			s.OnUnauthorized()
		}()
	}
	wg.Wait()
	assert.False(t, s.SignedIn())
}

func TestSignOut(t *testing.T) {
	creds := &memCreds{}
	s := NewSession(creds, nil)
	require.NoError(t, s.SignIn(context.Background(), issue(t, time.Hour)))
	require.NoError(t, s.SignOut(context.Background()))

	_, ok := s.User()
	assert.False(t, ok)
	assert.False(t, creds.saved)
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name                      string
		username, email, password string
		field                     string
	}{
		{"ok", "asha", "asha@example.com", "secret", ""},
		{"short username", "as", "asha@example.com", "secret", "username"},
		{"bad email", "asha", "asha-at-example", "secret", "email"},
		{"display name email", "asha", "Asha <asha@example.com>", "secret", "email"},
		{"short password", "asha", "asha@example.com", "12345", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.username, tt.email, tt.password)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin("a@b.co", "x"))

	var fe *FieldError
	require.ErrorAs(t, ValidateLogin("a@b.co", ""), &fe)
	assert.Equal(t, "password", fe.Field)
}
