package llm

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel echoes the last user message and records options.
type fakeChatModel struct {
	seen        []*schema.Message
	temperature *float32
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.seen = input
	f.temperature = model.GetCommonOptions(&model.Options{}, opts...).Temperature
	return schema.AssistantMessage("reply: "+input[len(input)-1].Content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error { return nil }

func TestEinoCompleter_RunsChain(t *testing.T) {
	fake := &fakeChatModel{}
	c, err := NewEinoCompleter(context.Background(), fake, NewLogCallback(nil))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{System: "be brief", User: "why?", Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "reply: why?", out)

	require.Len(t, fake.seen, 2)
	assert.Equal(t, schema.System, fake.seen[0].Role)
	assert.Equal(t, schema.User, fake.seen[1].Role)
	require.NotNil(t, fake.temperature)
	assert.Equal(t, float32(0.3), *fake.temperature)
}

func TestEinoCompleter_JSONHintAppended(t *testing.T) {
	fake := &fakeChatModel{}
	c, err := NewEinoCompleter(context.Background(), fake)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{User: "score", JSON: true})
	require.NoError(t, err)
	require.Len(t, fake.seen, 1)
	assert.Contains(t, fake.seen[0].Content, "JSON object")
}

func TestEinoCompleter_EmptyPromptFails(t *testing.T) {
	c, err := NewEinoCompleter(context.Background(), &fakeChatModel{})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{User: "  "})
	assert.Error(t, err)
}
