package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.5-flash",
	"gemini-pro":   "gemini-2.5-pro",
}

type geminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Provider backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: modelID(cfg.Model, geminiModels)}, nil
}

func (g *geminiProvider) Model() string { return g.model }

func (g *geminiProvider) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	contents := []*genai.Content{genai.NewContentFromText(p.Input, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, geminiConfig(p))
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, statusError("gemini", apiErr.Code, err)
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return nil, statusError("gemini", apiErrPtr.Code, err)
		}
		return nil, &Error{Provider: "gemini", Kind: KindUnavailable, Err: err}
	}

	text := resp.Text()
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, &Error{Provider: "gemini", Kind: KindTruncated, Output: []byte(text),
			Err: errors.New("stopped at the output token limit")}
	}
	out, err := checkOutput("gemini", p.Output, text)
	if err != nil {
		return nil, err
	}

	c := &Completion{JSON: out, Model: g.model}
	if resp.ModelVersion != "" {
		c.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		c.Usage = Usage{InputTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}
	return c, nil
}

func geminiConfig(p Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(p.MaxTokens)}
	if p.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(p.Temperature))
	}
	if p.Instructions != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.Instructions, genai.RoleUser)
	}
	if p.Output != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(p.Output.Definition)
	}
	return cfg
}

var genaiTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// toGenaiSchema converts the JSON Schema subset used by this package.
// Unknown types become strings; length and size limits are dropped and
// enforced by local validation instead.
func toGenaiSchema(def map[string]any) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeString}
	if t, ok := def["type"].(string); ok {
		if gt, ok := genaiTypes[t]; ok {
			s.Type = gt
		}
	}
	s.Description, _ = def["description"].(string)

	if props, ok := def["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, v := range props {
			if sub, ok := v.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(sub)
			}
		}
	}
	s.Required = stringList(def["required"])
	s.Enum = stringList(def["enum"])
	if items, ok := def["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	return s
}

// stringList returns the string members of a JSON array value.
func stringList(v any) []string {
	list, _ := v.([]any)
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
