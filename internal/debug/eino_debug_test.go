package debug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dyike/pricemove/config"
)

func TestEinoDebugger_DisabledIsNoop(t *testing.T) {
	d := NewEinoDebugger(&config.Config{EinoDebugPort: 52538}, nil)
	called := false
	d.start = func(ctx context.Context) error { called = true; return nil }

	assert.NoError(t, d.Initialize(context.Background()))
	assert.False(t, called)
	assert.False(t, d.IsEnabled())
	assert.Empty(t, d.GetDebugURL())
}

func TestEinoDebugger_Enabled(t *testing.T) {
	d := NewEinoDebugger(&config.Config{EinoDebugEnabled: true, EinoDebugPort: 6000}, nil)
	d.start = func(ctx context.Context) error { return errors.New("port busy") }

	err := d.Initialize(context.Background())
	assert.ErrorContains(t, err, "port busy")
	assert.Equal(t, "http://localhost:6000", d.GetDebugURL())
}
