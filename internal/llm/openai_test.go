package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, status int, body map[string]any, seen *map[string]any) *httptest.Server {
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
	return srv
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAI_ReviewsAttempt(t *testing.T) {
	var sent map[string]any
	srv := chatServer(t, http.StatusOK, chatCompletion(FixtureAnalysis, "stop"), &sent)
	p, err := NewOpenAI(OpenAIConfig{APIKey: "k", Model: "gpt-mini", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}

	a, err := ReviewAttempt(context.Background(), p, sampleQuiz(), nil)
	if err != nil {
		t.Fatalf("ReviewAttempt: %v", err)
	}
	if len(a.Recommendations) != 1 {
		t.Errorf("analysis = %+v", a)
	}

	if sent["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", sent["model"])
	}
	format, _ := sent["response_format"].(map[string]any)
	schema, _ := format["json_schema"].(map[string]any)
	if format["type"] != "json_schema" || schema["name"] != "result-analysis" {
		t.Errorf("response_format = %v", format)
	}
	msgs, _ := sent["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v", first["role"])
	}
}

func TestOpenAI_Errors(t *testing.T) {
	apiError := map[string]any{"error": map[string]any{"message": "nope", "type": "x"}}
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   Kind
	}{
		{"rate limit", http.StatusTooManyRequests, apiError, KindRateLimited},
		{"server error", http.StatusBadGateway, apiError, KindUnavailable},
		{"unknown model", http.StatusNotFound, apiError, KindRejected},
		{"truncated", http.StatusOK, chatCompletion(`{"strengths":[`, "length"), KindTruncated},
		{"not json", http.StatusOK, chatCompletion("Great job!", "stop"), KindMalformed},
		{"no choices", http.StatusOK, map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}}, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.body, nil)
			p, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
			if err != nil {
				t.Fatal(err)
			}
			_, err = p.Complete(context.Background(), Prompt{Task: TaskAnalysis, Input: "x", Output: AnalysisSchema})
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if e.Kind != tt.want {
				t.Errorf("kind = %s, want %s", e.Kind, tt.want)
			}
		})
	}
}

func TestOpenRouter(t *testing.T) {
	if _, err := NewOpenRouter(OpenRouterConfig{}); err == nil {
		t.Fatal("expected error without an API key")
	}

	p, err := NewOpenRouter(OpenRouterConfig{APIKey: "k", Model: "google/gemini-2.0-flash-exp"})
	if err != nil {
		t.Fatal(err)
	}
	cp := p.(*chatProvider)
	if cp.vendor != "openrouter" || p.Model() != "google/gemini-2.0-flash-exp" {
		t.Errorf("vendor = %q model = %q", cp.vendor, p.Model())
	}

	var sent map[string]any
	srv := chatServer(t, http.StatusOK, chatCompletion(twoQuestionQuiz, "stop"), &sent)
	p, err = NewOpenRouter(OpenRouterConfig{APIKey: "k", Model: "meta-llama/llama-3.1-8b", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	q, err := WriteQuiz(context.Background(), p, QuizBrief{Subject: "Physics", NumQuestions: 1})
	if err != nil {
		t.Fatalf("WriteQuiz: %v", err)
	}
	if len(q.Questions) != 1 {
		t.Errorf("expected the quiz trimmed to 1 question, got %d", len(q.Questions))
	}
	if sent["model"] != "meta-llama/llama-3.1-8b" {
		t.Errorf("model = %v", sent["model"])
	}
}
