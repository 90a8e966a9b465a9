package llm

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/quizcraft/internal/store"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func (r *recordingRepo) RecentLLMRequests(context.Context, int) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func TestLoggingRecordsQuizGeneration(t *testing.T) {
	mock := NewMock(Reply{JSON: FixtureQuiz(2), Usage: Usage{InputTokens: 120, OutputTokens: 40}})
	repo := &recordingRepo{}
	core, logs := observer.New(zap.InfoLevel)

	p := WithLogging("mock", mock, repo, zap.New(core))
	if _, err := WriteQuiz(context.Background(), p, QuizBrief{Subject: "Physics", NumQuestions: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	ev := repo.events[0]
	if ev.Provider != "mock" || ev.Purpose != "quiz-generation" || !ev.Success {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.InputTokens != 120 || ev.OutputTokens != 40 {
		t.Errorf("unexpected usage: %+v", ev)
	}

	lines := logs.FilterMessage("completion")
	if lines.Len() != 1 {
		t.Fatalf("expected one info log line, got %v", logs.All())
	}
	fields := lines.All()[0].ContextMap()
	if fields["task"] != "quiz-generation" || fields["items"] != int64(2) {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestLoggingFailureStillRecorded(t *testing.T) {
	mock := NewMock(Reply{Err: &Error{Provider: "mock", Kind: KindUnavailable, Err: errors.New("boom")}})
	repo := &recordingRepo{err: errors.New("disk full")}
	core, logs := observer.New(zap.WarnLevel)

	p := WithLogging("mock", mock, repo, zap.New(core))
	_, err := ReviewAttempt(context.Background(), p, sampleQuiz(), nil)
	if kindOf(err) != KindUnavailable {
		t.Fatalf("expected provider error to pass through, got %v", err)
	}

	if len(repo.events) != 1 || repo.events[0].Success {
		t.Fatalf("expected one failed event, got %+v", repo.events)
	}
	if repo.events[0].Purpose != "result-analysis" {
		t.Errorf("expected purpose 'result-analysis', got %q", repo.events[0].Purpose)
	}
	if logs.FilterMessage("completion failed").Len() != 1 {
		t.Error("expected failure warning")
	}
	if logs.FilterMessage("record llm event").Len() != 1 {
		t.Error("expected append warning")
	}
}

func TestLoggingNilRepo(t *testing.T) {
	p := WithLogging("mock", NewMock(), nil, nil)
	if _, err := p.Complete(context.Background(), analysisPrompt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != "mock" {
		t.Errorf("expected 'mock', got %q", p.Model())
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %v", got)
	}
	if LookupCost("unknown-model") != nil {
		t.Error("expected nil for unknown model")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "carrier-pigeon"}, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderMockWritesQuiz(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model() != "mock" {
		t.Errorf("expected mock, got %q", p.Model())
	}
	q, err := WriteQuiz(context.Background(), p, QuizBrief{NumQuestions: 3})
	if err != nil || len(q.Questions) != 3 {
		t.Fatalf("expected 3 fixture questions, got %v", err)
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: "anthropic"}, nil, nil)
	if err == nil {
		t.Fatal("expected error without an API key")
	}
}
