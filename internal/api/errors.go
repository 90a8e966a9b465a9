package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized matches any FetchError caused by a 401.
var ErrUnauthorized = errors.New("unauthorized")

// FetchError is a failed call to the backend: transport failure, non-2xx
// status, or a payload that could not be decoded.
type FetchError struct {
	Op      string // e.g. "get quiz"
	Status  int    // HTTP status, 0 if the request never completed
	Message string // server-provided message, if any
	Err     error

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnauthorized) match on status alone.
func (e *FetchError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Temporary reports whether retrying the same request may succeed.
func (e *FetchError) Temporary() bool {
	switch {
	case e.Status == 0:
		return e.Err != nil
	case e.Status == http.StatusTooManyRequests:
		return true
	default:
		return e.Status >= 500
	}
}

// UserMessage is a readable explanation for the learner.
func (e *FetchError) UserMessage() string {
	switch {
	case e.Status == http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case e.Message != "":
		return e.Message
	case e.Status == 0:
		return "Could not reach the quiz server. Check your connection."
	case e.Status == http.StatusNotFound:
		return "The requested item was not found."
	case e.Status == http.StatusTooManyRequests:
		return "Too many requests. Please wait a moment."
	case e.Status >= 500:
		return "The quiz server had a problem. Please try again."
	default:
		return fmt.Sprintf("Request failed (HTTP %d).", e.Status)
	}
}
