package service

import "runtime"

// Version is set at link time with -ldflags "-X".
var Version = "dev"

func GetSystemInfo() map[string]any {
	return map[string]any{
		"version": Version,
		"go":      runtime.Version(),
		"os":      runtime.GOOS + "/" + runtime.GOARCH,
	}
}
