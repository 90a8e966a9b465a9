// Package llm talks to hosted language models on behalf of the dev backend.
// Every call asks for JSON matching a Schema; providers validate the reply
// before returning it, so callers only ever decode well-formed output.
package llm

import (
	"context"
	"encoding/json"
)

// Provider completes one prompt against one model.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
	Model() string
}

// Task labels why a prompt was sent. It is recorded with every request.
type Task string

const (
	TaskQuiz     Task = "quiz-generation"
	TaskAnalysis Task = "result-analysis"
)

// Prompt is a single-turn request.
type Prompt struct {
	Task         Task
	Instructions string // system prompt
	Input        string // user message
	Output       *Schema

	// Items is how many list entries the caller expects back, when the
	// output is a list. Zero when not applicable.
	Items int

	MaxTokens   int
	Temperature float64
}

// Schema is the JSON Schema a reply must satisfy.
type Schema struct {
	// Name is sent to providers that label structured output. Kebab-case.
	Name        string
	Description string
	Definition  map[string]any
}

// Completion is a validated reply.
type Completion struct {
	JSON  json.RawMessage
	Model string
	Usage Usage
}

// Decode unmarshals the reply into v.
func (c *Completion) Decode(v any) error {
	return json.Unmarshal(c.JSON, v)
}

// Usage is token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }
