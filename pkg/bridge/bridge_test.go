package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotify(t *testing.T) {
	var got []string
	SetNotifyImpl(func(topic, payload string) {
		got = append(got, topic+" "+payload)
	})
	defer SetNotifyImpl(nil)

	Notify("engine.reloaded", `{"version":1}`)
	assert.NoError(t, NotifyJSON("analysis.progress", map[string]string{"step": "completed"}))
	assert.Equal(t, []string{
		`engine.reloaded {"version":1}`,
		`analysis.progress {"step":"completed"}`,
	}, got)

	assert.Error(t, NotifyJSON("bad", make(chan int)))
	assert.Len(t, got, 2)
}

func TestNotifyWithoutImpl(t *testing.T) {
	SetNotifyImpl(nil)
	assert.NotPanics(t, func() { Notify("x", "y") })
}
