package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/internal/jobs"
	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/storage"
)

type stubCollector struct {
	err   error
	block chan struct{}
	calls int
	mu    sync.Mutex
}

func (s *stubCollector) Collect(ctx context.Context, ticker string) (*models.Snapshot, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.Snapshot{
		News: models.NewsBundle{
			Ticker:         ticker,
			TickerArticles: []models.Article{{Title: "Earnings beat", URL: "https://n/1"}},
			Indices:        []string{"^GSPC"},
		},
		Prices: map[string]*models.PriceSnapshot{
			ticker: {Ticker: ticker, RegularChangePct: decimal.RequireFromString("4.2")},
		},
	}, nil
}

type stubScorer struct{}

func (stubScorer) Analyze(ctx context.Context, snap *models.Snapshot) map[string]models.SignificanceRecord {
	return map[string]models.SignificanceRecord{
		snap.News.Ticker: {SourceID: snap.News.Ticker, Kind: models.SourceCompany, Significance: 0.8, Articles: snap.News.TickerArticles},
		"^GSPC":          {SourceID: "^GSPC", Kind: models.SourceIndex, Significance: 0, Err: "all 1 scoring batches failed: x"},
	}
}

type stubComposer struct {
	err       error
	gotTicker string
	gotPrice  *models.PriceSnapshot
}

func (s *stubComposer) Compose(ctx context.Context, ticker string, records map[string]models.SignificanceRecord,
	price *models.PriceSnapshot) (string, error) {
	s.gotTicker, s.gotPrice = ticker, price
	if s.err != nil {
		return "", s.err
	}
	return ticker + " rose 4.20% after an earnings beat.", nil
}

type failingStore struct{ storage.AnalysisStore }

func (failingStore) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	return errors.New("disk full")
}

func newRunner(t *testing.T, deps Deps, listener jobs.Listener) *Runner {
	t.Helper()
	reg := jobs.NewRegistry(jobs.WithTTL(0), jobs.WithListener(listener))
	t.Cleanup(reg.Close)
	r, err := NewRunner(context.Background(), deps, reg)
	require.NoError(t, err)
	return r
}

func wait(t *testing.T, r *Runner, id string) models.WorkflowJob {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := r.Registry().Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func TestRun_PersistsRecordWithDigest(t *testing.T) {
	store := storage.NewMemoryStore()
	composer := &stubComposer{}
	r := newRunner(t, Deps{Collector: &stubCollector{}, Scorer: stubScorer{}, Composer: composer, Store: store}, nil)

	var steps []string
	rec, err := r.Run(context.Background(), "AAPL", func(step, message string) {
		steps = append(steps, step)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.StepCollectingNews,
		models.StepAnalyzingSignificance,
		models.StepGeneratingSummary,
		models.StepSavingAnalysis,
	}, steps)
	assert.Equal(t, "AAPL", composer.gotTicker)
	require.NotNil(t, composer.gotPrice)

	assert.Equal(t, "AAPL rose 4.20% after an earnings beat.", rec.AnalysisText)
	assert.Equal(t, models.AnalysisStatusCompleted, rec.Status)
	assert.False(t, rec.UpdatedAt.IsZero())

	digest, err := ParseDigest(rec.NewsSummary)
	require.NoError(t, err)
	require.Len(t, digest, 2)
	assert.Equal(t, "AAPL", digest[0].Source)
	assert.Equal(t, []DigestArticle{{Title: "Earnings beat", URL: "https://n/1"}}, digest[0].Articles)
	assert.Equal(t, "^GSPC", digest[1].Source)
	assert.NotEmpty(t, digest[1].Error)

	stored, err := store.LoadAnalysis(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.AnalysisText, stored.AnalysisText)
}

type cancellingComposer struct {
	stubComposer
	cancel context.CancelFunc
}

func (c *cancellingComposer) Compose(ctx context.Context, ticker string, records map[string]models.SignificanceRecord,
	price *models.PriceSnapshot) (string, error) {
	c.cancel()
	return c.stubComposer.Compose(ctx, ticker, records, price)
}

func TestRun_CancelledRunIsNotPersisted(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRunner(t, Deps{
		Collector: &stubCollector{},
		Scorer:    stubScorer{},
		Composer:  &cancellingComposer{cancel: cancel},
		Store:     store,
	}, nil)

	rec, err := r.Run(ctx, "AAPL", nil)
	require.Error(t, err)
	assert.Nil(t, rec)

	stored, err := store.LoadAnalysis(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestStart_JobLifecycle(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	listener := func(jobID, step, message string) {
		mu.Lock()
		events = append(events, step)
		mu.Unlock()
	}
	r := newRunner(t, Deps{Collector: &stubCollector{}, Scorer: stubScorer{}, Composer: &stubComposer{}, Store: storage.NewMemoryStore()}, listener)

	id, err := r.Start(context.Background(), "MSFT")
	require.NoError(t, err)
	job := wait(t, r, id)

	assert.Equal(t, models.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "MSFT", job.Result.Ticker)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.StepCompleted, events[len(events)-1])
	assert.Contains(t, events, models.StepSavingAnalysis)
}

func TestStart_StageFailuresFailTheJob(t *testing.T) {
	cases := map[string]Deps{
		"collect":   {Collector: &stubCollector{err: errors.New("network")}, Scorer: stubScorer{}, Composer: &stubComposer{}, Store: storage.NewMemoryStore()},
		"summarize": {Collector: &stubCollector{}, Scorer: stubScorer{}, Composer: &stubComposer{err: errors.New("quota")}, Store: storage.NewMemoryStore()},
		"persist":   {Collector: &stubCollector{}, Scorer: stubScorer{}, Composer: &stubComposer{}, Store: failingStore{}},
	}
	for name, deps := range cases {
		t.Run(name, func(t *testing.T) {
			r := newRunner(t, deps, nil)
			id, err := r.Start(context.Background(), "AAPL")
			require.NoError(t, err)
			job := wait(t, r, id)
			assert.Equal(t, models.JobFailed, job.Status)
			assert.Equal(t, models.StepError, job.CurrentStep)
			assert.NotEmpty(t, job.Error)
			assert.Nil(t, job.Result)
		})
	}
}

func TestStart_CoalescesSameTicker(t *testing.T) {
	collector := &stubCollector{block: make(chan struct{})}
	r := newRunner(t, Deps{Collector: collector, Scorer: stubScorer{}, Composer: &stubComposer{}, Store: storage.NewMemoryStore()}, nil)

	first, err := r.Start(context.Background(), "NVDA")
	require.NoError(t, err)
	second, err := r.Start(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	close(collector.block)
	wait(t, r, first)

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, 1, collector.calls)
}

func TestNewRunner_RequiresDeps(t *testing.T) {
	reg := jobs.NewRegistry(jobs.WithTTL(0))
	defer reg.Close()
	_, err := NewRunner(context.Background(), Deps{}, reg)
	assert.Error(t, err)
}

func TestDigestRecords_Empty(t *testing.T) {
	s, err := DigestRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)
}
