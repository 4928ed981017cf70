package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/llm"
)

type stubCompleter struct{}

func (stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", errors.New("offline")
}

func testBuilder(ctx context.Context, cfg config.Config, deps Deps) (*Engine, error) {
	deps.Completer = stubCompleter{}
	return BuildEngine(ctx, cfg, deps)
}

type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) notify(topic, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func newTestManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfigWithRoot(dir)
	cfg.StoreBackend = "memory"
	cfg.ExtractFullText = false
	cfg.Tickers = []string{"AAPL", "tsla", "bad ticker"}
	mgr, err := config.NewManager(
		config.WithConfigPath(filepath.Join(dir, "config.toml")),
		config.WithInitialConfig(cfg),
	)
	require.NoError(t, err)
	return mgr
}

func TestRuntime_BuildsEngineAndSeedsCatalog(t *testing.T) {
	rec := &recorder{}
	rt, err := NewRuntime(newTestManager(t), WithBuilder(testBuilder), WithNotifier(rec.notify), WithoutWatch())
	require.NoError(t, err)
	defer rt.Close()

	engine := rt.Engine()
	require.NotNil(t, engine)
	assert.NotNil(t, engine.Service)
	assert.Same(t, rt.Registry(), engine.Runner.Registry())

	tickers, err := engine.Service.ListTickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, tickers)
	assert.Equal(t, []string{"engine.reloaded"}, rec.seen())
}

func TestRuntime_ReloadKeepsStoreAndRegistry(t *testing.T) {
	mgr := newTestManager(t)
	rec := &recorder{}
	rt, err := NewRuntime(mgr, WithBuilder(testBuilder), WithNotifier(rec.notify))
	require.NoError(t, err)
	defer rt.Close()

	first := rt.Engine()
	_, err = first.Service.AddTickers(context.Background(), "NVDA")
	require.NoError(t, err)

	require.NoError(t, rt.UpdateConfigJSON(`{"batch_size": 3}`))
	second := rt.Engine()
	require.NotSame(t, first, second)
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, 3, second.Config.BatchSize)
	assert.Same(t, first.Store, second.Store)

	ok, err := second.Store.HasTicker(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"engine.reloaded", "engine.reloaded"}, rec.seen())
}

func TestRuntime_FailedReloadKeepsPreviousEngine(t *testing.T) {
	mgr := newTestManager(t)
	rec := &recorder{}
	fail := false
	builder := func(ctx context.Context, cfg config.Config, deps Deps) (*Engine, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return testBuilder(ctx, cfg, deps)
	}
	rt, err := NewRuntime(mgr, WithBuilder(builder), WithNotifier(rec.notify))
	require.NoError(t, err)
	defer rt.Close()

	first := rt.Engine()
	fail = true
	require.NoError(t, rt.UpdateConfigJSON(`{"news_count": 4}`))
	assert.Same(t, first, rt.Engine())
	assert.Equal(t, []string{"engine.reloaded", "engine.reload_failed"}, rec.seen())
}

func TestRuntime_UnknownTickerRejected(t *testing.T) {
	rt, err := NewRuntime(newTestManager(t), WithBuilder(testBuilder), WithoutWatch())
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Engine().Service.StartAnalysis(context.Background(), "ZZZZ", false)
	assert.Error(t, err)
	assert.Zero(t, rt.Registry().Len())
}

func TestRuntime_ProgressNotifications(t *testing.T) {
	rec := &recorder{}
	rt, err := NewRuntime(newTestManager(t), WithBuilder(testBuilder), WithNotifier(rec.notify), WithoutWatch())
	require.NoError(t, err)
	defer rt.Close()

	rt.onProgress("job-1", "collecting_news", "Collecting news")
	assert.Contains(t, rec.seen(), "analysis.progress")
}

func TestBuildEngine_RequiresRegistry(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.StoreBackend = "memory"
	_, err := BuildEngine(context.Background(), *cfg, Deps{Completer: stubCompleter{}})
	assert.ErrorContains(t, err, "registry")
}

