package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/store"
)

type logged struct {
	inner  Provider
	vendor string
	events store.EventRepo
	logger *zap.Logger
}

// WithLogging records every completion as a store event and a log line.
// events and logger may be nil.
func WithLogging(vendor string, p Provider, events store.EventRepo, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logged{inner: p, vendor: vendor, events: events, logger: logger.Named("llm")}
}

func (l *logged) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	start := time.Now()
	c, err := l.inner.Complete(ctx, p)

	ev := store.LLMRequestEventData{
		Provider:  l.vendor,
		Model:     l.inner.Model(),
		Purpose:   string(p.Task),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if c != nil {
		ev.InputTokens = c.Usage.InputTokens
		ev.OutputTokens = c.Usage.OutputTokens
		if c.Model != "" {
			ev.Model = c.Model
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("vendor", l.vendor),
		zap.String("model", ev.Model),
		zap.String("task", ev.Purpose),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Int("input_tokens", ev.InputTokens),
		zap.Int("output_tokens", ev.OutputTokens),
	}
	if p.Items > 0 {
		fields = append(fields, zap.Int("items", p.Items))
	}
	if cost := LookupCost(ev.Model); cost != nil {
		fields = append(fields, zap.Float64("cost_usd", cost.Cost(ev.InputTokens, ev.OutputTokens)))
	}
	if err != nil {
		l.logger.Warn("completion failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Info("completion", fields...)
	}

	// Event storage is best effort.
	if l.events != nil {
		if werr := l.events.AppendLLMRequest(ctx, ev); werr != nil {
			l.logger.Warn("record llm event", zap.Error(werr))
		}
	}
	return c, err
}

func (l *logged) Model() string { return l.inner.Model() }
