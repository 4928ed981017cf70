// Package significance scores how much each news source explains a
// ticker's move. Every source is split into batches that are scored in
// parallel and merged into one record.
package significance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/dedup"
	"github.com/dyike/pricemove/internal/llm"
	"github.com/dyike/pricemove/internal/models"
)

// Scorer is the structured half of the scoring oracle.
type Scorer interface {
	ScoreRelevance(ctx context.Context, systemPrompt, userPrompt string) (map[string]llm.SourceScore, error)
}

type Aggregator struct {
	scorer      Scorer
	batchSize   int
	callTimeout time.Duration
	logger      arbor.ILogger
}

type Option func(*Aggregator)

func WithBatchSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithCallTimeout bounds each oracle call on its own; a timed out batch
// fails without affecting its siblings.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.callTimeout = d }
}

func WithLogger(logger arbor.ILogger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAggregator(scorer Scorer, opts ...Option) *Aggregator {
	a := &Aggregator{
		scorer:    scorer,
		batchSize: DefaultBatchSize,
		logger:    arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type sourceTask struct {
	id       string
	kind     models.SourceKind
	articles []models.Article
	price    *models.PriceSnapshot
}

// Analyze scores the ticker's own news and every comparison source that has
// price data, all concurrently. A missing quote for the ticker itself only
// shows up in the prompts. The result is keyed by source id.
func (a *Aggregator) Analyze(ctx context.Context, snap *models.Snapshot) map[string]models.SignificanceRecord {
	ticker := snap.News.Ticker
	tickerPrice := snap.Price(ticker)

	tasks := []sourceTask{{
		id:       ticker,
		kind:     models.SourceCompany,
		articles: snap.News.TickerArticles,
		price:    tickerPrice,
	}}

	if tickerPrice == nil {
		a.logger.Warn().Str("ticker", ticker).Msg("no price data for ticker")
	}
	for _, idx := range snap.News.Indices {
		tasks = a.appendComparison(tasks, idx, models.SourceIndex, snap.News.MarketArticles[idx], snap.Price(idx))
	}
	for _, peer := range snap.News.Peers {
		tasks = a.appendComparison(tasks, peer, models.SourcePeer, snap.News.PeerArticles[peer], snap.Price(peer))
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]models.SignificanceRecord, len(tasks))
	)
	for _, task := range tasks {
		wg.Add(1)
		go func(task sourceTask) {
			defer wg.Done()
			rec := a.scoreSource(ctx, snap, task)
			mu.Lock()
			results[task.id] = rec
			mu.Unlock()
		}(task)
	}
	wg.Wait()

	return results
}

func (a *Aggregator) appendComparison(tasks []sourceTask, id string, kind models.SourceKind,
	articles []models.Article, price *models.PriceSnapshot) []sourceTask {
	if price == nil {
		a.logger.Info().Str("source", id).Msg("no price data, comparison omitted")
		return tasks
	}
	return append(tasks, sourceTask{id: id, kind: kind, articles: articles, price: price})
}

type batchResult struct {
	significance float64
	articles     []models.Article
	err          error
}

// scoreSource merges per-batch scores: the mean over batches that succeeded
// and the concatenation of their supporting articles. Failed batches are
// left out of the mean rather than counted as zero.
func (a *Aggregator) scoreSource(ctx context.Context, snap *models.Snapshot, task sourceTask) models.SignificanceRecord {
	batches := Batch(task.articles, a.batchSize)
	rec := models.SignificanceRecord{
		SourceID: task.id,
		Kind:     task.kind,
		Articles: []models.Article{},
		Batches:  len(batches),
	}
	if len(batches) == 0 {
		return rec
	}

	results := make([]batchResult, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []models.Article) {
			defer wg.Done()
			results[i] = a.scoreBatch(ctx, snap, task, batch)
		}(i, batch)
	}
	wg.Wait()

	var (
		sum       float64
		succeeded int
		lastErr   error
	)
	for i, r := range results {
		if r.err != nil {
			rec.FailedBatches++
			lastErr = r.err
			a.logger.Warn().Str("source", task.id).Int("batch", i+1).Int("batches", len(batches)).Err(r.err).Msg("scoring batch failed")
			continue
		}
		sum += r.significance
		succeeded++
		rec.Articles = append(rec.Articles, r.articles...)
	}

	if succeeded == 0 {
		rec.Err = fmt.Sprintf("all %d scoring batches failed: %v", len(batches), lastErr)
		return rec
	}
	rec.Significance = models.ClampSignificance(sum / float64(succeeded))

	a.logger.Debug().
		Str("source", task.id).
		Str("kind", string(task.kind)).
		Str("significance", fmt.Sprintf("%.2f", rec.Significance)).
		Int("articles", len(rec.Articles)).
		Int("failed_batches", rec.FailedBatches).
		Msg("source scored")
	return rec
}

func (a *Aggregator) scoreBatch(ctx context.Context, snap *models.Snapshot, task sourceTask, batch []models.Article) batchResult {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	ticker := snap.News.Ticker
	var user string
	if task.kind == models.SourceCompany {
		user = companyPrompt(ticker, task.price, batch)
	} else {
		user = comparisonPrompt(ticker, snap.Price(ticker), snap.News.TickerArticles, task.id, task.price, batch)
	}

	scores, err := a.scorer.ScoreRelevance(ctx, systemPrompt, user)
	if err != nil {
		return batchResult{err: err}
	}

	score, ok := scores[task.id]
	if !ok && len(scores) == 1 {
		for _, only := range scores {
			score, ok = only, true
		}
	}
	if !ok {
		return batchResult{err: fmt.Errorf("%w: no entry for %s", models.ErrOracleResponse, task.id)}
	}

	return batchResult{
		significance: models.ClampSignificance(score.Significance),
		articles:     supportingArticles(batch, score.Articles),
	}
}

// supportingArticles maps the oracle's echoed articles back onto the batch
// originals. Echoes that match nothing in the batch are dropped.
func supportingArticles(batch, echoed []models.Article) []models.Article {
	if len(echoed) == 0 {
		return nil
	}
	set := dedup.BuildIdentitySet(echoed)
	var out []models.Article
	for _, a := range batch {
		if set.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}
