package api

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Payload schemas check shape only, never content.
const (
	schemaQuiz   = "quiz"
	schemaResult = "result"
)

var questionSchema = map[string]any{
	"type":     "object",
	"required": []any{"question_id", "question_text", "options"},
	"properties": map[string]any{
		"question_id":   map[string]any{"type": "integer"},
		"question_text": map[string]any{"type": "string"},
		"options": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    map[string]any{"type": "string"},
		},
	},
}

var payloadSchemas = map[string]map[string]any{
	schemaQuiz: {
		"type":     "object",
		"required": []any{"_id", "questions"},
		"properties": map[string]any{
			"_id":       map[string]any{"type": "string", "minLength": 1},
			"title":     map[string]any{"type": "string"},
			"questions": map[string]any{"type": "array", "items": questionSchema},
		},
	},
	schemaResult: {
		"type":     "object",
		"required": []any{"_id", "score", "totalQuestions"},
		"properties": map[string]any{
			"_id":            map[string]any{"type": "string", "minLength": 1},
			"score":          map[string]any{"type": "integer", "minimum": 0},
			"totalQuestions": map[string]any{"type": "integer", "minimum": 0},
			"answers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"question_id"},
					"properties": map[string]any{
						"question_id":     map[string]any{"type": "integer"},
						"selected_answer": map[string]any{"type": "string"},
						"is_correct":      map[string]any{"type": "boolean"},
					},
				},
			},
			"quiz": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"questions": map[string]any{"type": "array", "items": questionSchema},
				},
			},
		},
	},
}

// schemaCache caches compiled payload schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// InvalidPayloadError is returned when a response body does not have the
// expected shape.
type InvalidPayloadError struct {
	Schema string
	Err    error
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Schema, e.Err)
}

func (e *InvalidPayloadError) Unwrap() error { return e.Err }

func validatePayload(name string, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &InvalidPayloadError{Schema: name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compiledSchema(name)
	if err != nil {
		return &InvalidPayloadError{Schema: name, Err: err}
	}
	if err := compiled.Validate(parsed); err != nil {
		return &InvalidPayloadError{Schema: name, Err: err}
	}
	return nil
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}
	def, ok := payloadSchemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	// The compiler wants plain decoded JSON values.
	b, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
