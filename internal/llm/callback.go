package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	ecmodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/ternarybob/arbor"
)

type startKey struct{}

// LogCallback reports chat model calls made by the oracle chain.
type LogCallback struct {
	Logger arbor.ILogger
}

func NewLogCallback(logger arbor.ILogger) *LogCallback {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &LogCallback{Logger: logger}
}

func (cb *LogCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil || info.Component != components.ComponentOfChatModel {
		return ctx
	}
	if in := ecmodel.ConvCallbackInput(input); in != nil {
		cb.Logger.Debug().Str("node", info.Name).Int("messages", len(in.Messages)).Msg("chat model call started")
	}
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (cb *LogCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if info == nil || info.Component != components.ComponentOfChatModel {
		return ctx
	}
	evt := cb.Logger.Debug().Str("node", info.Name)
	if started, ok := ctx.Value(startKey{}).(time.Time); ok {
		evt = evt.Str("elapsed", time.Since(started).Round(time.Millisecond).String())
	}
	if out := ecmodel.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
		evt = evt.Int("prompt_tokens", out.TokenUsage.PromptTokens).Int("completion_tokens", out.TokenUsage.CompletionTokens)
	}
	evt.Msg("chat model call finished")
	return ctx
}

func (cb *LogCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	cb.Logger.Warn().Str("node", name).Err(err).Msg("oracle chain error")
	return ctx
}

func (cb *LogCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *LogCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
