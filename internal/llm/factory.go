package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/store"
)

// NewProvider builds the configured Provider. Calls pass through retry,
// then logging, then the vendor client, so every attempt is recorded.
// events and logger may be nil.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, logger *zap.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropic(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAI(cfg.OpenAI)
	case "gemini":
		base, err = NewGemini(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouter(cfg.OpenRouter)
	case "mock":
		base = NewMock()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(cfg.Provider, base, events, logger), cfg.Retry), nil
}
