package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func anthropicServer(t *testing.T, status int, body map[string]any, seen *map[string]any) Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := NewAnthropic(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"}, option.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 80},
	}
}

func TestAnthropic_WritesQuiz(t *testing.T) {
	var sent map[string]any
	p := anthropicServer(t, http.StatusOK, anthropicMessage(twoQuestionQuiz, "end_turn"), &sent)

	q, err := WriteQuiz(context.Background(), p, QuizBrief{Subject: "Physics", Chapter: "Optics", NumQuestions: 2})
	if err != nil {
		t.Fatalf("WriteQuiz: %v", err)
	}
	if len(q.Questions) != 2 || q.Questions[1].ID != 2 {
		t.Fatalf("questions = %+v", q.Questions)
	}
	if sent["model"] != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %v", sent["model"])
	}
	msgs, _ := sent["messages"].([]any)
	if len(msgs) != 1 || !strings.Contains(mustJSON(t, msgs[0]), "Optics") {
		t.Errorf("user message missing the chapter: %v", msgs)
	}
	if !strings.Contains(mustJSON(t, sent["system"]), "multiple-choice") {
		t.Errorf("system prompt not sent: %v", sent["system"])
	}
}

func TestAnthropic_FencedReplyAccepted(t *testing.T) {
	p := anthropicServer(t, http.StatusOK, anthropicMessage("```json\n"+FixtureAnalysis+"\n```", "end_turn"), nil)
	c, err := p.Complete(context.Background(), Prompt{Task: TaskAnalysis, Input: "x", Output: AnalysisSchema, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Usage.Total() != 200 {
		t.Errorf("usage = %+v", c.Usage)
	}
}

func TestAnthropic_Errors(t *testing.T) {
	apiError := func(kind string) map[string]any {
		return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": kind}}
	}
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   Kind
	}{
		{"rate limit", http.StatusTooManyRequests, apiError("rate_limit_error"), KindRateLimited},
		{"server error", http.StatusInternalServerError, apiError("api_error"), KindUnavailable},
		{"bad key", http.StatusUnauthorized, apiError("authentication_error"), KindRejected},
		{"truncated", http.StatusOK, anthropicMessage(`{"title":"Cut`, "max_tokens"), KindTruncated},
		{"wrong shape", http.StatusOK, anthropicMessage(`{"title":"No questions"}`, "end_turn"), KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := anthropicServer(t, tt.status, tt.body, nil)
			_, err := p.Complete(context.Background(), Prompt{Task: TaskQuiz, Input: "x", Output: QuizSchema, MaxTokens: 100})
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if e.Kind != tt.want || e.Provider != "anthropic" {
				t.Errorf("got %s from %s, want %s", e.Kind, e.Provider, tt.want)
			}
		})
	}
}

func TestAnthropic_RequiresKey(t *testing.T) {
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestModelID(t *testing.T) {
	tests := []struct {
		name  string
		known map[string]string
		want  string
	}{
		{"claude-haiku", anthropicModels, "claude-haiku-4-5-20251001"},
		{"claude-sonnet", anthropicModels, "claude-sonnet-4-5-20250929"},
		{"gemini-flash", geminiModels, "gemini-2.5-flash"},
		{"gpt-mini", openaiModels, "gpt-4o-mini"},
		{"claude-opus-4-5", anthropicModels, "claude-opus-4-5"},
	}
	for _, tt := range tests {
		if got := modelID(tt.name, tt.known); got != tt.want {
			t.Errorf("modelID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
