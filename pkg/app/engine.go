package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/config"
	"github.com/dyike/pricemove/internal/cache"
	"github.com/dyike/pricemove/internal/collector"
	"github.com/dyike/pricemove/internal/dataflows"
	"github.com/dyike/pricemove/internal/jobs"
	"github.com/dyike/pricemove/internal/llm"
	"github.com/dyike/pricemove/internal/service"
	"github.com/dyike/pricemove/internal/significance"
	"github.com/dyike/pricemove/internal/storage"
	"github.com/dyike/pricemove/internal/summary"
	"github.com/dyike/pricemove/internal/workflow"
)

// Engine is one fully wired pipeline built from a config snapshot.
type Engine struct {
	Config  config.Config
	BuiltAt time.Time
	Version uint64

	Store   storage.Store
	Runner  *workflow.Runner
	Service *service.AnalysisService

	closers []func()
}

// Deps carries what survives a rebuild. Registry is shared by every engine
// so jobs started before a reload stay visible. Previous lets the builder
// reuse a store whose location did not change.
type Deps struct {
	Registry *jobs.Registry
	Logger   arbor.ILogger
	Previous *Engine
	// Completer overrides the configured LLM provider.
	Completer llm.Completer
}

var engineSeq atomic.Uint64

func BuildEngine(ctx context.Context, cfg config.Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("job registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	e := &Engine{Config: cfg, BuiltAt: time.Now()}
	ok := false
	defer func() {
		if !ok {
			e.release(deps.Previous)
		}
	}()

	store, err := openStore(ctx, cfg, deps.Previous, logger)
	e.Store = store
	if err != nil {
		return nil, err
	}

	quotes, err := newQuoteSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	if lp, isLongport := quotes.(*dataflows.LongportQuoteSource); isLongport {
		e.closers = append(e.closers, lp.Close)
	}

	completer := deps.Completer
	if completer == nil {
		completer, err = llm.NewCompleter(ctx, llm.ProviderConfig{
			Provider:  cfg.LLMProvider,
			APIKey:    cfg.LLMAPIKey(),
			Model:     cfg.LLMModel,
			BaseURL:   cfg.LLMBaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.CallTimeout.D(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init %s completer: %w", cfg.LLMProvider, err)
		}
	}
	oracle := llm.NewOracle(completer,
		llm.WithScoringTemperature(cfg.ScoringTemperature),
		llm.WithSummaryTemperature(cfg.SummaryTemperature),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithLogger(logger),
	)

	runner, err := workflow.NewRunner(ctx, workflow.Deps{
		Collector: newCollector(cfg, quotes, logger),
		Scorer: significance.NewAggregator(oracle,
			significance.WithBatchSize(cfg.BatchSize),
			significance.WithCallTimeout(cfg.CallTimeout.D()),
			significance.WithLogger(logger),
		),
		Composer: summary.NewComposer(oracle,
			summary.WithThreshold(cfg.SignificanceThreshold),
			summary.WithLogger(logger),
		),
		Store: store,
	}, deps.Registry,
		workflow.WithCallbacks(llm.NewLogCallback(logger)),
		workflow.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}
	e.Runner = runner

	gate := cache.NewGate(store, cache.WithWindow(cfg.FreshnessWindow.D()), cache.WithLogger(logger))
	e.Service = service.NewAnalysisService(store, gate, runner, deps.Registry, logger)

	e.Version = engineSeq.Add(1)
	ok = true
	logger.Info().
		Str("llm", cfg.LLMProvider).
		Str("quotes", cfg.QuoteProvider).
		Str("news", cfg.NewsProvider).
		Str("store", cfg.StoreBackend).
		Int64("version", int64(e.Version)).
		Msg("engine built")
	return e, nil
}

func sameStorage(a, b config.Config) bool {
	return a.StoreBackend == b.StoreBackend && a.DBPath == b.DBPath && a.BadgerDir == b.BadgerDir
}

func openStore(ctx context.Context, cfg config.Config, prev *Engine, logger arbor.ILogger) (storage.Store, error) {
	var store storage.Store
	if prev != nil && prev.Store != nil && sameStorage(prev.Config, cfg) {
		store = prev.Store
	} else {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		opened, err := storage.Open(storage.Options{
			Backend:   cfg.StoreBackend,
			DBPath:    cfg.DBPath,
			BadgerDir: cfg.BadgerDir,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
		}
		store = opened
	}

	seed := make([]string, 0, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		if dataflows.ValidateSymbol(t) == nil {
			seed = append(seed, dataflows.NormalizeSymbol(t))
		}
	}
	if err := store.AddTickers(ctx, seed...); err != nil {
		return store, fmt.Errorf("seed ticker catalog: %w", err)
	}
	return store, nil
}

func newQuoteSource(cfg config.Config, logger arbor.ILogger) (dataflows.QuoteSource, error) {
	switch cfg.QuoteProvider {
	case "longport":
		src, err := dataflows.NewLongportQuoteSource(dataflows.LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init longport quotes: %w", err)
		}
		return src, nil
	default:
		return dataflows.NewYahooQuoteSource(logger), nil
	}
}

func newCollector(cfg config.Config, quotes dataflows.QuoteSource, logger arbor.ILogger) *collector.Collector {
	var news dataflows.NewsSource
	switch cfg.NewsProvider {
	case "finnhub":
		news = dataflows.NewFinnhubNewsSource(cfg.FinnhubAPIKey, logger)
	default:
		news = dataflows.NewYahooNewsSource(logger)
	}

	opts := []collector.Option{
		collector.WithIndices(cfg.MarketIndices),
		collector.WithNewsCount(cfg.NewsCount),
		collector.WithCallTimeout(cfg.CallTimeout.D()),
		collector.WithLogger(logger),
	}
	if cfg.FMPAPIKey != "" {
		opts = append(opts, collector.WithPeerDiscovery(
			dataflows.NewFMPPeerDiscovery(cfg.FMPAPIKey, logger, dataflows.WithPeerLimit(cfg.PeerLimit))))
	} else {
		logger.Warn().Msg("FMP_API_KEY not set, peer comparison disabled")
	}
	if cfg.ExtractFullText {
		opts = append(opts, collector.WithExtractor(dataflows.NewArticleExtractor(cfg.ExtractTimeout.D(), logger)))
	}
	return collector.New(news, quotes, opts...)
}

// release frees what this engine opened on its own. A store inherited from
// prev is left open.
func (e *Engine) release(prev *Engine) {
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
	if e.Store != nil && (prev == nil || prev.Store != e.Store) {
		_ = e.Store.Close()
	}
}

// Close releases the engine's adapters and its store.
func (e *Engine) Close() error {
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

// retire releases e after next has replaced it, keeping a shared store open.
func (e *Engine) retire(next *Engine) {
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
	if e.Store != nil && e.Store != next.Store {
		_ = e.Store.Close()
	}
}
