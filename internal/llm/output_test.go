package llm

import (
	"errors"
	"testing"
)

func TestUnfence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```\n", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := string(unfence([]byte(tt.in))); got != tt.want {
			t.Errorf("unfence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckOutput(t *testing.T) {
	if _, err := checkOutput("x", AnalysisSchema, FixtureAnalysis); err != nil {
		t.Fatalf("valid analysis rejected: %v", err)
	}

	_, err := checkOutput("x", AnalysisSchema, "Here is your feedback!")
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindMalformed || string(e.Output) != "Here is your feedback!" {
		t.Errorf("not JSON: %v", err)
	}

	_, err = checkOutput("x", AnalysisSchema, `{"strengths":"all"}`)
	if kindOf(err) != KindMalformed {
		t.Errorf("schema mismatch: %v", err)
	}

	raw, err := checkOutput("x", nil, "```json\nnot checked\n```")
	if err != nil || string(raw) != "not checked" {
		t.Errorf("nil schema: %q, %v", raw, err)
	}
}
