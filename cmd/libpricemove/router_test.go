package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/llm"
	"github.com/dyike/pricemove/pkg/app"
)

type offlineCompleter struct{}

func (offlineCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", errors.New("offline")
}

func newRuntime(t *testing.T) *app.Runtime {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfigWithRoot(dir)
	cfg.StoreBackend = "memory"
	cfg.Tickers = []string{"AAPL"}
	mgr, err := config.NewManager(
		config.WithConfigPath(filepath.Join(dir, "config.toml")),
		config.WithInitialConfig(cfg),
	)
	require.NoError(t, err)

	rt, err := app.NewRuntime(mgr, app.WithoutWatch(), app.WithBuilder(
		func(ctx context.Context, cfg config.Config, deps app.Deps) (*app.Engine, error) {
			deps.Completer = offlineCompleter{}
			return app.BuildEngine(ctx, cfg, deps)
		}))
	require.NoError(t, err)
	t.Cleanup(rt.Close)
	return rt
}

func call(t *testing.T, rt *app.Runtime, method, params string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(dispatch(rt, method, params)), &resp))
	return resp
}

func TestDispatch_NotInitialized(t *testing.T) {
	assert.Equal(t, 503, call(t, nil, "analysis.start", `{"ticker":"AAPL"}`).Code)
	assert.Equal(t, 200, call(t, nil, "system.info", "").Code)
}

func TestDispatch_Catalog(t *testing.T) {
	rt := newRuntime(t)

	resp := call(t, rt, "catalog.add", `{"tickers":["msft"]}`)
	require.Equal(t, 200, resp.Code, resp.Msg)
	assert.Equal(t, []any{"MSFT"}, resp.Data)

	resp = call(t, rt, "catalog.list", "")
	assert.Equal(t, []any{"AAPL", "MSFT"}, resp.Data)

	assert.Equal(t, 400, call(t, rt, "catalog.add", `{"tickers":["no way"]}`).Code)
}

func TestDispatch_Errors(t *testing.T) {
	rt := newRuntime(t)

	assert.Equal(t, 404, call(t, rt, "analysis.start", `{"ticker":"ZZZZ"}`).Code)
	assert.Equal(t, 400, call(t, rt, "analysis.start", `{"ticker":`).Code)
	assert.Equal(t, 404, call(t, rt, "analysis.status", `{"workflow_id":"missing"}`).Code)
	assert.Equal(t, 404, call(t, rt, "analysis.cancel", `{"workflow_id":"missing"}`).Code)
	assert.Equal(t, 404, call(t, rt, "nope", "").Code)
}

func TestDispatch_CachedMiss(t *testing.T) {
	rt := newRuntime(t)

	resp := call(t, rt, "analysis.cached", `{"ticker":"AAPL"}`)
	assert.Equal(t, 200, resp.Code)
	assert.Nil(t, resp.Data)

	assert.Equal(t, 404, call(t, rt, "analysis.cached", `{"ticker":"ZZZZ"}`).Code)
}
