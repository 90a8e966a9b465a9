// Package auth holds the learner's sign-in state and the JWT claims shared
// with the dev backend.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. Field names follow the backend's tokens.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   string `json:"_id"`
	jwt.RegisteredClaims
}

// User is the identity decoded from a token.
type User struct {
	ID       string
	Username string
	Email    string
}

// DecodeUnverified reads the claims of a token without checking its
// signature. The client never holds the signing key; the server remains
// the authority on validity.
func DecodeUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the claims carry an expiry in the past.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

func (c *Claims) user() User {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return User{ID: id, Username: c.Username, Email: c.Email}
}

// Issuer signs and verifies HS256 tokens for the dev backend.
type Issuer struct {
	hmac   []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer creates an Issuer. A zero ttl defaults to seven days.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{hmac: []byte(secret), issuer: "quizcraft-devserver", ttl: ttl}
}

// Issue signs a token for u.
func (a *Issuer) Issue(u User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: u.Username,
		Email:    u.Email,
		UserID:   u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

// ErrInvalidToken is returned by Parse for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Parse verifies a token and returns its claims.
func (a *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}
