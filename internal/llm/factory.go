package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// ProviderConfig names a backend and its credentials.
type ProviderConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewCompleter returns the Completer for cfg.Provider.
func NewCompleter(ctx context.Context, cfg ProviderConfig, logger arbor.ILogger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "deepseek", "openai":
		chatModel, err := NewChatModel(ctx, ChatModelConfig{
			Provider:  cfg.Provider,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init chat model: %w", err)
		}
		return NewEinoCompleter(ctx, chatModel, NewLogCallback(logger))
	case "anthropic", "claude":
		return NewAnthropicCompleter(cfg.APIKey, cfg.Model)
	case "gemini", "google":
		return NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
