// Package debug attaches the eino visual debugger to the analysis graph.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/config"
)

type EinoDebugger struct {
	enabled bool
	port    int
	logger  arbor.ILogger
	start   func(ctx context.Context) error
}

func NewEinoDebugger(cfg *config.Config, logger arbor.ILogger) *EinoDebugger {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &EinoDebugger{
		enabled: cfg.EinoDebugEnabled,
		port:    cfg.EinoDebugPort,
		logger:  logger,
		start:   func(ctx context.Context) error { return devops.Init(ctx) },
	}
}

// Initialize starts the devops server when enabled. It must run before the
// graphs it should observe are compiled.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.enabled {
		return nil
	}

	d.logger.Info().Int("port", d.port).Msg("initializing eino visual debug plugin")
	if err := d.start(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info().Str("url", d.GetDebugURL()).Msg("eino debug server ready")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.enabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.enabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.port)
}
