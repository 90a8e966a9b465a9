package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/abhisek/quizcraft/internal/api"
	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/store"
)

type claimsKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			s.fail(w, http.StatusUnauthorized, "Please sign in to continue.")
			return
		}
		claims, err := s.issuer.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil || claims.UserID == "" {
			s.fail(w, http.StatusUnauthorized, "Your session has expired. Please sign in again.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func userID(ctx context.Context) string {
	if c, ok := ctx.Value(claimsKey{}).(*auth.Claims); ok {
		return c.UserID
	}
	return ""
}

type registeredUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.Registration
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := auth.ValidateRegistration(req.Username, req.Email, req.Password); err != nil {
		s.fail(w, http.StatusBadRequest, fieldMessage(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(w, r, "hash password", err)
		return
	}

	u := &store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.store.Users().Create(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.fail(w, http.StatusConflict, "An account with that username or email already exists.")
			return
		}
		s.internalError(w, r, "create user", err)
		return
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID))
	s.respond(w, http.StatusCreated, registeredUser{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.ValidateLogin(req.Email, req.Password); err != nil {
		s.fail(w, http.StatusBadRequest, fieldMessage(err))
		return
	}

	u, err := s.store.Users().ByEmail(r.Context(), strings.TrimSpace(req.Email))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(w, http.StatusBadRequest, "Invalid email or password.")
		return
	case err != nil:
		s.internalError(w, r, "look up user", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		s.fail(w, http.StatusBadRequest, "Invalid email or password.")
		return
	}

	tok, err := s.issuer.Issue(auth.User{ID: u.ID, Username: u.Username, Email: u.Email})
	if err != nil {
		s.internalError(w, r, "issue token", err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"accessToken": tok})
}

func fieldMessage(err error) string {
	var fe *auth.FieldError
	if errors.As(err, &fe) {
		return fe.UserMessage()
	}
	return err.Error()
}
