package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicModels resolves short names; anything else is used verbatim.
var anthropicModels = map[string]string{
	"claude-sonnet": "claude-sonnet-4-5-20250929",
	"claude-haiku":  "claude-haiku-4-5-20251001",
}

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a Provider backed by the Anthropic Messages API.
func NewAnthropic(cfg AnthropicConfig, opts ...option.RequestOption) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	// Retries are handled by WithRetry.
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}, opts...)
	return &anthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  modelID(cfg.Model, anthropicModels),
	}, nil
}

func (a *anthropicProvider) Model() string { return a.model }

func (a *anthropicProvider) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	msg, err := a.client.Messages.New(ctx, a.params(p))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, statusError("anthropic", apiErr.StatusCode, err)
		}
		return nil, &Error{Provider: "anthropic", Kind: KindUnavailable, Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if msg.StopReason == anthropic.StopReasonMaxTokens {
		return nil, &Error{Provider: "anthropic", Kind: KindTruncated, Output: []byte(text.String()),
			Err: fmt.Errorf("stopped at %d output tokens", msg.Usage.OutputTokens)}
	}

	out, err := checkOutput("anthropic", p.Output, text.String())
	if err != nil {
		return nil, err
	}
	return &Completion{
		JSON:  out,
		Model: string(msg.Model),
		Usage: Usage{InputTokens: int(msg.Usage.InputTokens), OutputTokens: int(msg.Usage.OutputTokens)},
	}, nil
}

func (a *anthropicProvider) params(p Prompt) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(p.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.Input)),
		},
	}
	if p.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.Instructions}}
	}
	if p.Temperature > 0 {
		params.Temperature = anthropic.Float(p.Temperature)
	}
	if p.Output != nil {
		params.OutputConfig = anthropic.OutputConfigParam{
			Format: anthropic.JSONOutputFormatParam{Schema: p.Output.Definition},
		}
	}
	return params
}

// modelID maps a short model name to a provider id.
func modelID(name string, known map[string]string) string {
	if id, ok := known[name]; ok {
		return id
	}
	return name
}
