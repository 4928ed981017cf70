package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/cache"
	"github.com/dyike/pricemove/internal/jobs"
	"github.com/dyike/pricemove/internal/llm"
	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/service"
	"github.com/dyike/pricemove/internal/storage"
	"github.com/dyike/pricemove/pkg/app"
)

type offlineCompleter struct{}

func (offlineCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", errors.New("offline")
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"DEEPSEEK_API_KEY", "FMP_API_KEY", "PRICEMOVE_STORE_BACKEND", "PRICEMOVE_LLM_PROVIDER"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := config.DefaultConfigWithRoot(dir)
	cfg.StoreBackend = "memory"
	cfg.Tickers = []string{"AAPL", "TSLA"}
	if mutate != nil {
		mutate(cfg)
	}
	_, err := config.NewManager(config.WithConfigPath(path), config.WithInitialConfig(cfg))
	require.NoError(t, err)
	return path
}

func execute(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	s := newSession(&out)
	s.builder = func(ctx context.Context, cfg config.Config, deps app.Deps) (*app.Engine, error) {
		deps.Completer = offlineCompleter{}
		return app.BuildEngine(ctx, cfg, deps)
	}
	cmd := newRootCmd(s)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.ExecuteContext(context.Background())
	s.close()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(newSession(&out))
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "pricemove dev")
}

func TestConfigCommands(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, func(c *config.Config) { c.FMPAPIKey = "abcdef123" })

	out, err := execute(t, path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	out, err = execute(t, path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "ab****23")
	assert.NotContains(t, out, "abcdef123")

	out, err = execute(t, path, "config", "validate")
	assert.Error(t, err, "no llm key configured")
	assert.Contains(t, out, "missing")
}

func TestCatalogAndCachedCommands(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, nil)

	out, err := execute(t, path, "catalog", "add", "nvda", "amd")
	require.NoError(t, err)
	assert.Contains(t, out, "NVDA, AMD")

	out, err = execute(t, path, "catalog", "list")
	require.NoError(t, err)
	assert.Equal(t, "AAPL\nTSLA\n", out, "memory catalog does not outlive the process")

	out, err = execute(t, path, "cached", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "No fresh analysis for AAPL")
}

func TestAnalyzeUnknownTicker(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, nil)

	out, err := execute(t, path, "analyze", "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, out, "ticker not found")
}

func newTestService(t *testing.T, task jobs.Task) (*service.AnalysisService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.AddTickers(context.Background(), "AAPL", "TSLA"))
	registry := jobs.NewRegistry(jobs.WithTTL(0))
	t.Cleanup(registry.Close)
	launcher := launcherFunc(func(ctx context.Context, ticker string) (string, error) {
		id, _ := registry.Start(ticker, task)
		return id, nil
	})
	return service.NewAnalysisService(store, cache.NewGate(store), launcher, registry, nil), store
}

type launcherFunc func(ctx context.Context, ticker string) (string, error)

func (f launcherFunc) Start(ctx context.Context, ticker string) (string, error) { return f(ctx, ticker) }

func TestRunAnalyses(t *testing.T) {
	task := func(ctx context.Context, progress jobs.ProgressFunc) (*models.AnalysisRecord, error) {
		return &models.AnalysisRecord{
			Ticker:       "AAPL",
			AnalysisText: "Shares rose on earnings.",
			NewsSummary:  `[{"source":"AAPL","kind":"company","significance":0.8,"articles":[{"title":"Earnings beat"}]}]`,
			UpdatedAt:    time.Now(),
		}, nil
	}
	svc, store := newTestService(t, task)
	store.PutAnalysis(models.AnalysisRecord{Ticker: "TSLA", AnalysisText: "Cached text", UpdatedAt: time.Now()})

	outcomes := runAnalyses(context.Background(), svc, []string{"aapl", "TSLA", "ZZZZ"}, analyzeOptions{wait: true, concurrency: 2})
	require.Len(t, outcomes, 3)

	require.NoError(t, outcomes[0].err)
	assert.Equal(t, service.StatusStarted, outcomes[0].result.Status)
	require.NotNil(t, outcomes[0].job)
	assert.Equal(t, models.JobCompleted, outcomes[0].job.Status)

	require.NoError(t, outcomes[1].err)
	assert.Equal(t, service.StatusCached, outcomes[1].result.Status)

	assert.ErrorIs(t, outcomes[2].err, models.ErrTickerNotFound)

	var out bytes.Buffer
	err := printOutcomes(&out, outcomes)
	assert.ErrorContains(t, err, "1 of 3")
	assert.Contains(t, out.String(), "Shares rose on earnings.")
	assert.Contains(t, out.String(), "Cached text")
	assert.Contains(t, out.String(), "0.80")
}

func TestRunAnalyses_FailedJob(t *testing.T) {
	svc, _ := newTestService(t, func(ctx context.Context, progress jobs.ProgressFunc) (*models.AnalysisRecord, error) {
		return nil, errors.New("collector exploded")
	})

	outcomes := runAnalyses(context.Background(), svc, []string{"AAPL"}, analyzeOptions{wait: true})
	require.NoError(t, outcomes[0].err)
	assert.Equal(t, models.JobFailed, outcomes[0].job.Status)

	var out bytes.Buffer
	assert.Error(t, printOutcomes(&out, outcomes))
	assert.Contains(t, out.String(), "collector exploded")
}

func TestRenderProgress(t *testing.T) {
	line := renderProgress("0123456789abcdef", models.StepCollectingNews, "Collecting news")
	assert.Contains(t, line, "01234567")
	assert.NotContains(t, line, "89abcdef")
	assert.Contains(t, line, "Collecting news")
}

func TestWriteReports(t *testing.T) {
	rec := &models.AnalysisRecord{
		Ticker:       "AAPL",
		AnalysisText: "Up on earnings.",
		NewsSummary:  `[{"source":"AAPL","kind":"company","significance":0.9,"articles":[{"title":"Beat","url":"https://x.test/a"}]}]`,
		UpdatedAt:    time.Date(2026, 10, 15, 15, 0, 0, 0, time.UTC),
	}
	outcomes := []analysisOutcome{
		{ticker: "AAPL", result: &service.StartResult{Status: service.StatusCached, Record: rec}},
		{ticker: "ZZZZ", err: models.ErrTickerNotFound},
	}

	dir := t.TempDir()
	paths, err := writeReports(dir, outcomes)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	md := analysisMarkdown(rec)
	assert.Contains(t, md, "# AAPL price move")
	assert.Contains(t, md, "| AAPL | company | 0.90 | 1 |")
	assert.Contains(t, md, "- [Beat](https://x.test/a)")
}
