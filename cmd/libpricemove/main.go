package main

/*
#include <stdlib.h>

// topic: event name, payload: JSON
typedef void (*EventCallback)(char* topic, char* payload);

// Go cannot call a C function pointer directly.
static void invokeCallback(EventCallback cb, char* topic, char* payload) {
    if (cb) {
        cb(topic, payload);
    }
}
*/
import "C"
import (
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/logging"
	"github.com/dyike/pricemove/pkg/app"
	"github.com/dyike/pricemove/pkg/bridge"
)

var (
	globalCallback C.EventCallback

	rtMu    sync.RWMutex
	runtime *app.Runtime
)

func init() {
	bridge.SetNotifyImpl(func(topic, payload string) {
		if globalCallback == nil {
			return
		}
		cTopic := C.CString(topic)
		cPayload := C.CString(payload)
		defer C.free(unsafe.Pointer(cTopic))
		defer C.free(unsafe.Pointer(cPayload))

		C.invokeCallback(globalCallback, cTopic, cPayload)
	})
}

func currentRuntime() *app.Runtime {
	rtMu.RLock()
	defer rtMu.RUnlock()
	return runtime
}

//export InitSDK
func InitSDK(workDir *C.char, configJson *C.char) *C.char {
	dir := C.GoString(workDir)
	cfgJSON := C.GoString(configJson)

	if err := initRuntime(dir, cfgJSON); err != nil {
		return C.CString("Error: " + err.Error())
	}
	return C.CString("Success")
}

func initRuntime(dir, cfgJSON string) error {
	mgr, err := config.NewManager(config.WithConfigDir(dir))
	if err != nil {
		return err
	}
	if cfgJSON != "" {
		if err := mgr.UpdateFromJSON(cfgJSON); err != nil {
			return err
		}
	}

	cfg := mgr.Get()
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(dir, "logs", "pricemove.log")
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: logFile, Quiet: true})

	rt, err := app.NewRuntime(mgr, app.WithNotifier(bridge.Notify), app.WithLogger(logger))
	if err != nil {
		return err
	}

	rtMu.Lock()
	old := runtime
	runtime = rt
	rtMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

//export RegisterCallback
func RegisterCallback(cb C.EventCallback) {
	globalCallback = cb
}

//export UpdateConfig
func UpdateConfig(jsonStr *C.char) *C.char {
	rt := currentRuntime()
	if rt == nil {
		return C.CString("Error: sdk not initialized")
	}
	if err := rt.UpdateConfigJSON(C.GoString(jsonStr)); err != nil {
		return C.CString("Error: " + err.Error())
	}
	return C.CString("Success")
}

//export Call
func Call(method *C.char, params *C.char) *C.char {
	m := C.GoString(method)
	p := C.GoString(params)

	resp := Dispatch(m, p)

	return C.CString(resp)
}

//export Shutdown
func Shutdown() {
	rtMu.Lock()
	rt := runtime
	runtime = nil
	rtMu.Unlock()
	if rt != nil {
		rt.Close()
	}
}

//export FreeString
func FreeString(str *C.char) {
	C.free(unsafe.Pointer(str))
}

func main() {}
