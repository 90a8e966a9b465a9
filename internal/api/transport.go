package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingTransport is a RoundTripper decorator that tags each request with an
// id and logs its outcome.
type loggingTransport struct {
	inner  http.RoundTripper
	logger *zap.Logger
}

func newLoggingTransport(inner http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &loggingTransport{inner: inner, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.inner.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", id),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		t.logger.Warn("request failed", append(fields, zap.Error(err))...)
		return nil, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 400 {
		t.logger.Warn("request", fields...)
	} else {
		t.logger.Debug("request", fields...)
	}
	return resp, nil
}
