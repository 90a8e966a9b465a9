package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

var errNotFound = errors.New("not found")

const maxJSONBody = 1 << 20

type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: msg})
}

// internalError logs err and answers with a generic 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
	s.fail(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
