package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failed completion.
type Kind int

const (
	// KindUnavailable is a network failure or a 5xx from the provider.
	KindUnavailable Kind = iota
	// KindRateLimited is a 429.
	KindRateLimited
	// KindRejected is any other 4xx: bad key, unknown model, bad request.
	KindRejected
	// KindTruncated means the reply hit the token limit.
	KindTruncated
	// KindMalformed means the reply did not match the requested schema.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate limited"
	case KindRejected:
		return "rejected"
	case KindTruncated:
		return "truncated"
	case KindMalformed:
		return "malformed output"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every provider for a failed completion.
type Error struct {
	Provider   string
	Kind       Kind
	Status     int           // HTTP status, when there was one
	RetryAfter time.Duration // server hint for KindRateLimited
	Output     json.RawMessage
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// statusError maps an HTTP status from a provider SDK to an Error.
func statusError(provider string, status int, err error) *Error {
	e := &Error{Provider: provider, Status: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status >= 400 && status < 500:
		e.Kind = KindRejected
	default:
		e.Kind = KindUnavailable
	}
	return e
}
