package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// AnthropicCompleter calls the Claude Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

func NewAnthropicCompleter(apiKey, modelName string, opts ...option.RequestOption) (*AnthropicCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicCompleter{
		client: anthropic.NewClient(opts...),
		model:  modelName,
	}, nil
}

func (a *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	user := req.User
	if req.JSON {
		user += "\n\nRespond with a single JSON object and nothing else."
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	params.Temperature = anthropic.Float(float64(req.Temperature))
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("claude returned no text content")
	}
	return sb.String(), nil
}
