// Package workflow runs one price-move analysis end to end:
// collect -> score -> summarize -> persist.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/jobs"
	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/storage"
)

const (
	NodeCollect   = "collect_news"
	NodeScore     = "analyze_significance"
	NodeSummarize = "generate_summary"
	NodePersist   = "save_analysis"
)

type Collector interface {
	Collect(ctx context.Context, ticker string) (*models.Snapshot, error)
}

type Scorer interface {
	Analyze(ctx context.Context, snap *models.Snapshot) map[string]models.SignificanceRecord
}

type Composer interface {
	Compose(ctx context.Context, ticker string, records map[string]models.SignificanceRecord,
		price *models.PriceSnapshot) (string, error)
}

// Deps are the stage implementations a Runner wires together.
type Deps struct {
	Collector Collector
	Scorer    Scorer
	Composer  Composer
	Store     storage.AnalysisStore
}

func (d Deps) validate() error {
	switch {
	case d.Collector == nil:
		return errors.New("collector is required")
	case d.Scorer == nil:
		return errors.New("scorer is required")
	case d.Composer == nil:
		return errors.New("composer is required")
	case d.Store == nil:
		return errors.New("analysis store is required")
	}
	return nil
}

// runState is the graph-local state of one invocation.
type runState struct {
	ticker   string
	snapshot *models.Snapshot
	records  map[string]models.SignificanceRecord
	progress jobs.ProgressFunc
}

type progressKey struct{}

type Runner struct {
	deps      Deps
	registry  *jobs.Registry
	runnable  compose.Runnable[string, *models.AnalysisRecord]
	callbacks []callbacks.Handler
	logger    arbor.ILogger
}

type Option func(*Runner)

func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(r *Runner) { r.callbacks = append(r.callbacks, handlers...) }
}

func WithLogger(logger arbor.ILogger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(ctx context.Context, deps Deps, registry *jobs.Registry, opts ...Option) (*Runner, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, errors.New("job registry is required")
	}
	r := &Runner{deps: deps, registry: registry, logger: arbor.NewNoOpLogger()}
	for _, opt := range opts {
		opt(r)
	}

	runnable, err := r.compile(ctx)
	if err != nil {
		return nil, err
	}
	r.runnable = runnable
	return r, nil
}

func (r *Runner) compile(ctx context.Context) (compose.Runnable[string, *models.AnalysisRecord], error) {
	g := compose.NewGraph[string, *models.AnalysisRecord](
		compose.WithGenLocalState(func(ctx context.Context) *runState {
			progress, _ := ctx.Value(progressKey{}).(jobs.ProgressFunc)
			if progress == nil {
				progress = func(string, string) {}
			}
			return &runState{progress: progress}
		}),
	)

	_ = g.AddLambdaNode(NodeCollect, compose.InvokableLambda(r.collect), compose.WithNodeName(NodeCollect))
	_ = g.AddLambdaNode(NodeScore, compose.InvokableLambda(r.score), compose.WithNodeName(NodeScore))
	_ = g.AddLambdaNode(NodeSummarize, compose.InvokableLambda(r.summarize), compose.WithNodeName(NodeSummarize))
	_ = g.AddLambdaNode(NodePersist, compose.InvokableLambda(r.persist), compose.WithNodeName(NodePersist))

	_ = g.AddEdge(compose.START, NodeCollect)
	_ = g.AddEdge(NodeCollect, NodeScore)
	_ = g.AddEdge(NodeScore, NodeSummarize)
	_ = g.AddEdge(NodeSummarize, NodePersist)
	_ = g.AddEdge(NodePersist, compose.END)

	runnable, err := g.Compile(ctx, compose.WithGraphName("price_move_analysis"))
	if err != nil {
		return nil, fmt.Errorf("compile analysis graph: %w", err)
	}
	return runnable, nil
}

func withState(ctx context.Context, fn func(*runState)) {
	_ = compose.ProcessState[*runState](ctx, func(_ context.Context, s *runState) error {
		fn(s)
		return nil
	})
}

func (r *Runner) collect(ctx context.Context, ticker string) (*models.Snapshot, error) {
	withState(ctx, func(s *runState) {
		s.ticker = ticker
		s.progress(models.StepCollectingNews, fmt.Sprintf("Collecting news and price data for %s", ticker))
	})

	snap, err := r.deps.Collector.Collect(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("collect news for %s: %w", ticker, err)
	}

	withState(ctx, func(s *runState) { s.snapshot = snap })
	r.logger.Info().
		Str("ticker", ticker).
		Int("ticker_articles", len(snap.News.TickerArticles)).
		Int("peers", len(snap.News.Peers)).
		Int("quotes", len(snap.Prices)).
		Msg("collection finished")
	return snap, nil
}

func (r *Runner) score(ctx context.Context, snap *models.Snapshot) (map[string]models.SignificanceRecord, error) {
	withState(ctx, func(s *runState) {
		s.progress(models.StepAnalyzingSignificance,
			fmt.Sprintf("Analyzing news significance across %d sources", 1+len(snap.News.Indices)+len(snap.News.Peers)))
	})

	records := r.deps.Scorer.Analyze(ctx, snap)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	withState(ctx, func(s *runState) { s.records = records })
	return records, nil
}

func (r *Runner) summarize(ctx context.Context, records map[string]models.SignificanceRecord) (string, error) {
	var (
		ticker string
		snap   *models.Snapshot
	)
	withState(ctx, func(s *runState) {
		ticker, snap = s.ticker, s.snapshot
		s.progress(models.StepGeneratingSummary, "Generating concise price movement explanation")
	})

	text, err := r.deps.Composer.Compose(ctx, ticker, records, snap.Price(ticker))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return text, nil
}

func (r *Runner) persist(ctx context.Context, text string) (*models.AnalysisRecord, error) {
	var (
		ticker  string
		records map[string]models.SignificanceRecord
	)
	withState(ctx, func(s *runState) {
		ticker, records = s.ticker, s.records
		s.progress(models.StepSavingAnalysis, fmt.Sprintf("Saving analysis for %s", ticker))
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("save analysis for %s: %w", ticker, err)
	}

	digest, err := DigestRecords(records)
	if err != nil {
		return nil, fmt.Errorf("encode news summary: %w", err)
	}
	rec := &models.AnalysisRecord{
		Ticker:          ticker,
		AnalysisText:    text,
		NewsSummary:     digest,
		CurrentStep:     models.StepCompleted,
		ProgressMessage: "Analysis complete",
		Status:          models.AnalysisStatusCompleted,
	}
	if err := r.deps.Store.SaveAnalysis(ctx, rec); err != nil {
		return nil, fmt.Errorf("save analysis for %s: %w", ticker, err)
	}
	return rec, nil
}

// Run executes the workflow synchronously.
func (r *Runner) Run(ctx context.Context, ticker string, progress jobs.ProgressFunc) (*models.AnalysisRecord, error) {
	if progress != nil {
		ctx = context.WithValue(ctx, progressKey{}, progress)
	}
	var opts []compose.Option
	if len(r.callbacks) > 0 {
		opts = append(opts, compose.WithCallbacks(r.callbacks...))
	}
	rec, err := r.runnable.Invoke(ctx, ticker, opts...)
	if err != nil {
		r.logger.Error().Str("ticker", ticker).Err(err).Msg("analysis workflow failed")
		return nil, err
	}
	return rec, nil
}

// Start runs the workflow as a background job and returns its id without
// waiting. A ticker that already has a running job gets that job's id.
func (r *Runner) Start(ctx context.Context, ticker string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, joined := r.registry.Start(ticker, func(ctx context.Context, progress jobs.ProgressFunc) (*models.AnalysisRecord, error) {
		return r.Run(ctx, ticker, progress)
	})
	if joined {
		r.logger.Debug().Str("ticker", ticker).Str("job_id", id).Msg("analysis already running")
	}
	return id, nil
}

func (r *Runner) Registry() *jobs.Registry { return r.registry }
