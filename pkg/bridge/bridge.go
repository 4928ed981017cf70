// Package bridge forwards engine events to whatever host embeds the SDK.
package bridge

import (
	"encoding/json"
	"sync"
)

type NotifyFunc func(topic string, payload string)

var (
	mu   sync.RWMutex
	impl NotifyFunc
)

// SetNotifyImpl installs the host callback. Passing nil drops events.
func SetNotifyImpl(f NotifyFunc) {
	mu.Lock()
	defer mu.Unlock()
	impl = f
}

func Notify(topic string, payload string) {
	mu.RLock()
	f := impl
	mu.RUnlock()
	if f != nil {
		f(topic, payload)
	}
}

// NotifyJSON marshals v and sends it as the payload.
func NotifyJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	Notify(topic, string(b))
	return nil
}
