package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/debug"
	"github.com/dyike/pricemove/internal/logging"
	"github.com/dyike/pricemove/internal/service"
	"github.com/dyike/pricemove/pkg/app"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	verbose    bool
	einoDebug  bool
}

// session lazily opens the config manager and runtime for one CLI process.
type session struct {
	flags   globalFlags
	out     io.Writer
	builder app.EngineBuilder

	mu       sync.Mutex
	mgr      *config.Manager
	rt       *app.Runtime
	logger   arbor.ILogger
	showProg bool
}

func newSession(out io.Writer) *session {
	return &session{out: out}
}

func (s *session) manager() (*config.Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr != nil {
		return s.mgr, nil
	}
	var opts []config.ManagerOption
	if s.flags.configPath != "" {
		opts = append(opts, config.WithConfigPath(s.flags.configPath))
	}
	mgr, err := config.NewManager(opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	s.mgr = mgr
	return mgr, nil
}

func (s *session) buildLogger(cfg config.Config) arbor.ILogger {
	level := cfg.LogLevel
	if s.flags.logLevel != "" {
		level = s.flags.logLevel
	}
	file := cfg.LogFile
	if file == "" {
		file = filepath.Join(cfg.DataDir, "logs", "pricemove.log")
	}
	return logging.New(logging.Options{Level: level, File: file, Quiet: !s.flags.verbose})
}

// service opens the runtime on first use and returns the current engine's
// analysis service.
func (s *session) service(ctx context.Context) (*service.AnalysisService, error) {
	rt, err := s.runtime(ctx)
	if err != nil {
		return nil, err
	}
	return rt.Engine().Service, nil
}

func (s *session) runtime(ctx context.Context) (*app.Runtime, error) {
	mgr, err := s.manager()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rt != nil {
		return s.rt, nil
	}

	cfg := mgr.Get().WithEnv()
	s.logger = s.buildLogger(cfg)

	if s.flags.einoDebug {
		cfg.EinoDebugEnabled = true
	}
	// The devops plugin must be up before the workflow graph compiles.
	debugger := debug.NewEinoDebugger(&cfg, s.logger)
	if err := debugger.Initialize(ctx); err != nil {
		return nil, err
	}
	if debugger.IsEnabled() {
		displayInfo(s.out, "Eino debug UI: "+debugger.GetDebugURL())
	}

	opts := []app.Option{
		app.WithLogger(s.logger),
		app.WithNotifier(s.onEvent),
		app.WithoutWatch(),
	}
	if s.builder != nil {
		opts = append(opts, app.WithBuilder(s.builder))
	}
	rt, err := app.NewRuntime(mgr, opts...)
	if err != nil {
		return nil, err
	}
	s.rt = rt
	return rt, nil
}

type progressEvent struct {
	WorkflowID string `json:"workflow_id"`
	Step       string `json:"step"`
	Message    string `json:"message"`
}

func (s *session) setShowProgress(on bool) {
	s.mu.Lock()
	s.showProg = on
	s.mu.Unlock()
}

func (s *session) onEvent(topic, payload string) {
	if topic != "analysis.progress" {
		return
	}
	var ev progressEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showProg {
		fmt.Fprintln(s.out, renderProgress(ev.WorkflowID, ev.Step, ev.Message))
	}
}

func (s *session) close() {
	s.mu.Lock()
	rt := s.rt
	s.rt = nil
	s.mu.Unlock()
	if rt != nil {
		rt.Close()
	}
}
