package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var openaiModels = map[string]string{
	"gpt-mini": "gpt-4o-mini",
	"gpt":      "gpt-4o",
}

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// chatProvider serves any OpenAI-compatible chat completions API.
type chatProvider struct {
	vendor string
	client *openai.Client
	model  string
}

// NewOpenAI creates a Provider backed by the OpenAI API, or a compatible
// API when cfg.BaseURL is set.
func NewOpenAI(cfg OpenAIConfig) (Provider, error) {
	return newChat("openai", cfg.APIKey, cfg.BaseURL, modelID(cfg.Model, openaiModels))
}

// NewOpenRouter creates a Provider backed by OpenRouter. Model ids are
// passed through unchanged.
func NewOpenRouter(cfg OpenRouterConfig) (Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return newChat("openrouter", cfg.APIKey, baseURL, cfg.Model)
}

func newChat(vendor, apiKey, baseURL, model string) (*chatProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", vendor)
	}
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	return &chatProvider{vendor: vendor, client: openai.NewClientWithConfig(cc), model: model}, nil
}

func (c *chatProvider) Model() string { return c.model }

func (c *chatProvider) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	req, err := c.request(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, statusError(c.vendor, apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, statusError(c.vendor, reqErr.HTTPStatusCode, err)
		}
		return nil, &Error{Provider: c.vendor, Kind: KindUnavailable, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: c.vendor, Kind: KindMalformed, Err: errors.New("reply has no choices")}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, &Error{Provider: c.vendor, Kind: KindTruncated, Output: []byte(choice.Message.Content),
			Err: fmt.Errorf("stopped at %d output tokens", resp.Usage.CompletionTokens)}
	}
	out, err := checkOutput(c.vendor, p.Output, choice.Message.Content)
	if err != nil {
		return nil, err
	}
	return &Completion{
		JSON:  out,
		Model: resp.Model,
		Usage: Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens},
	}, nil
}

func (c *chatProvider) request(p Prompt) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{
		Model:               c.model,
		MaxCompletionTokens: p.MaxTokens,
		Temperature:         float32(p.Temperature),
	}
	if p.Instructions != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: p.Instructions,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: p.Input,
	})

	if p.Output != nil {
		def, err := json.Marshal(p.Output.Definition)
		if err != nil {
			return req, fmt.Errorf("encode schema %s: %w", p.Output.Name, err)
		}
		// Strict mode rejects minItems/maxItems; the reply is validated locally.
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        p.Output.Name,
				Description: p.Output.Description,
				Schema:      json.RawMessage(def),
			},
		}
	}
	return req, nil
}
