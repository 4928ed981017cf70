package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/jobs"
	"github.com/dyike/pricemove/internal/logging"
)

type EngineBuilder func(ctx context.Context, cfg config.Config, deps Deps) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

func WithLogger(logger arbor.ILogger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithoutWatch skips the config file watcher, for one-shot CLI commands.
func WithoutWatch() Option {
	return func(r *Runtime) {
		r.watch = false
	}
}

// Runtime owns the current Engine and rebuilds it whenever the config
// changes. The job registry outlives every engine.
type Runtime struct {
	cfgMgr   *config.Manager
	engine   atomic.Pointer[Engine]
	registry *jobs.Registry
	reloadMu sync.Mutex

	builder EngineBuilder
	notify  func(string, string)
	logger  arbor.ILogger
	watch   bool
	cancel  context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr:  cfgMgr,
		builder: BuildEngine,
		logger:  logging.NewNop(),
		watch:   true,
	}

	for _, opt := range opts {
		opt(rt)
	}

	cfg := cfgMgr.Get().WithEnv()
	rt.registry = jobs.NewRegistry(
		jobs.WithTTL(cfg.JobTTL.D()),
		jobs.WithListener(rt.onProgress),
		jobs.WithLogger(rt.logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := rt.reload(ctx, cfgMgr.Get()); err != nil {
		cancel()
		rt.registry.Close()
		return nil, err
	}

	if rt.watch {
		if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
			if err := rt.reload(ctx, cfg); err != nil {
				rt.logger.Error().Err(err).Msg("engine reload failed, keeping previous engine")
			}
		}); err != nil {
			rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Registry() *jobs.Registry {
	return r.registry
}

func (r *Runtime) Config() config.Config {
	return r.cfgMgr.Get()
}

// Close stops the watcher, cancels running jobs and releases the engine.
func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.registry.Close()
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	if e := r.engine.Swap(nil); e != nil {
		if err := e.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("close engine")
		}
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) UpdateConfigTOML(tomlStr string) error {
	return r.cfgMgr.UpdateFromTOML(tomlStr)
}

func (r *Runtime) reload(ctx context.Context, cfg config.Config) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	prev := r.engine.Load()
	engine, err := r.builder(ctx, cfg.WithEnv(), Deps{
		Registry: r.registry,
		Logger:   r.logger,
		Previous: prev,
	})
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	r.engine.Store(engine)
	if prev != nil {
		prev.retire(engine)
	}
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) onProgress(jobID, step, message string) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"workflow_id": jobID,
		"step":        step,
		"message":     message,
	})
	r.notify("analysis.progress", string(payload))
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify("engine.reloaded", string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify("engine.reload_failed", string(payload))
}
