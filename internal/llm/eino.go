package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// ChatModelConfig selects an eino chat model.
type ChatModelConfig struct {
	Provider  string // deepseek | openai
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewChatModel builds an eino chat model for the deepseek or openai
// provider. Any OpenAI compatible endpoint works through BaseURL.
func NewChatModel(ctx context.Context, cfg ChatModelConfig) (model.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key is required", cfg.Provider)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	switch strings.ToLower(cfg.Provider) {
	case "deepseek":
		name := cfg.Model
		if name == "" {
			name = "deepseek-chat"
		}
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.APIKey,
			Model:     name,
			BaseURL:   cfg.BaseURL,
			MaxTokens: maxTokens,
			Timeout:   cfg.Timeout,
		})
	case "openai":
		name := cfg.Model
		if name == "" {
			name = "gpt-4o"
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     name,
			MaxTokens: &maxTokens,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported eino provider %q", cfg.Provider)
	}
}

// EinoCompleter runs each request through a compiled chain:
// prompt messages -> chat model -> text.
type EinoCompleter struct {
	runnable  compose.Runnable[Request, string]
	callbacks []callbacks.Handler
}

func NewEinoCompleter(ctx context.Context, chatModel model.ChatModel, handlers ...callbacks.Handler) (*EinoCompleter, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	chain := compose.NewChain[Request, string]()
	chain.AppendLambda(compose.InvokableLambdaWithOption(buildMessages))
	chain.AppendChatModel(chatModel)
	chain.AppendLambda(compose.InvokableLambdaWithOption(messageText))

	runnable, err := chain.Compile(ctx, compose.WithGraphName("oracle"))
	if err != nil {
		return nil, fmt.Errorf("compile oracle chain: %w", err)
	}
	return &EinoCompleter{runnable: runnable, callbacks: handlers}, nil
}

func (e *EinoCompleter) Complete(ctx context.Context, req Request) (string, error) {
	modelOpts := []model.Option{model.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(req.MaxTokens))
	}
	opts := []compose.Option{compose.WithChatModelOption(modelOpts...)}
	if len(e.callbacks) > 0 {
		opts = append(opts, compose.WithCallbacks(e.callbacks...))
	}
	return e.runnable.Invoke(ctx, req, opts...)
}

func buildMessages(ctx context.Context, req Request, opts ...any) ([]*schema.Message, error) {
	if strings.TrimSpace(req.User) == "" {
		return nil, errors.New("empty user prompt")
	}
	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	user := req.User
	if req.JSON {
		user += "\n\nRespond with a single JSON object and nothing else."
	}
	return append(messages, schema.UserMessage(user)), nil
}

func messageText(ctx context.Context, msg *schema.Message, opts ...any) (string, error) {
	if msg == nil {
		return "", errors.New("chat model returned no message")
	}
	return msg.Content, nil
}
