// Package collector gathers the news and quotes one analysis run needs.
//
// Index news is fetched first and becomes the dedup reference: ticker and
// peer articles already reported under an index are dropped. No single
// source failure fails the collection; it yields empty news or a missing
// quote instead.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/dataflows"
	"github.com/dyike/pricemove/internal/dedup"
	"github.com/dyike/pricemove/internal/models"
)

var DefaultIndices = []string{"^GSPC", "^DJI", "^IXIC"}

const (
	DefaultNewsCount          = 10
	defaultExtractConcurrency = 4
)

type Collector struct {
	news      dataflows.NewsSource
	quotes    dataflows.QuoteSource
	peers     dataflows.PeerDiscovery
	extractor dataflows.ArticleTextExtractor

	indices            []string
	newsCount          int
	callTimeout        time.Duration
	extractConcurrency int
	logger             arbor.ILogger
	now                func() time.Time
}

type Option func(*Collector)

// WithPeerDiscovery enables peer comparison. Without it no peers are used.
func WithPeerDiscovery(p dataflows.PeerDiscovery) Option {
	return func(c *Collector) { c.peers = p }
}

// WithExtractor enables best-effort full-text extraction for every article.
func WithExtractor(e dataflows.ArticleTextExtractor) Option {
	return func(c *Collector) { c.extractor = e }
}

func WithIndices(indices []string) Option {
	return func(c *Collector) {
		if len(indices) > 0 {
			c.indices = append([]string(nil), indices...)
		}
	}
}

func WithNewsCount(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.newsCount = n
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(c *Collector) { c.callTimeout = d }
}

func WithExtractConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.extractConcurrency = n
		}
	}
}

func WithLogger(logger arbor.ILogger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(news dataflows.NewsSource, quotes dataflows.QuoteSource, opts ...Option) *Collector {
	c := &Collector{
		news:               news,
		quotes:             quotes,
		indices:            append([]string(nil), DefaultIndices...),
		newsCount:          DefaultNewsCount,
		extractConcurrency: defaultExtractConcurrency,
		logger:             arbor.NewNoOpLogger(),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs the three news phases and then fetches every quote in one
// parallel batch. The only error returned is the caller's context error.
func (c *Collector) Collect(ctx context.Context, ticker string) (*models.Snapshot, error) {
	bundle := models.NewsBundle{
		Ticker:         ticker,
		MarketArticles: make(map[string][]models.Article, len(c.indices)),
		PeerArticles:   map[string][]models.Article{},
		Peers:          []string{},
		Indices:        append([]string(nil), c.indices...),
	}

	// Phase 1: index news, always kept in full.
	indexNews := c.fetchNewsParallel(ctx, c.indices)
	seen := make(dedup.IdentitySet)
	for _, idx := range c.indices {
		bundle.MarketArticles[idx] = indexNews[idx]
		seen.Add(indexNews[idx]...)
	}
	c.logger.Info().Str("ticker", ticker).Int("identities", len(seen)).Msg("index news collected")

	// Phase 2: peers and ticker news side by side.
	var (
		wg         sync.WaitGroup
		tickerNews []models.Article
		peers      []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tickerNews = c.fetchNews(ctx, ticker)
	}()
	go func() {
		defer wg.Done()
		peers = c.discoverPeers(ctx, ticker)
	}()
	wg.Wait()

	bundle.TickerArticles = dedup.FilterNew(tickerNews, seen)
	bundle.Peers = peers
	c.logger.Info().
		Str("ticker", ticker).
		Int("raw", len(tickerNews)).
		Int("kept", len(bundle.TickerArticles)).
		Strs("peers", peers).
		Msg("ticker news collected")

	// Phase 3: peer news, each filtered against the index set only.
	if len(peers) > 0 {
		peerNews := c.fetchNewsParallel(ctx, peers)
		for _, peer := range peers {
			bundle.PeerArticles[peer] = dedup.FilterNew(peerNews[peer], seen)
		}
	}

	symbols := make([]string, 0, 1+len(c.indices)+len(peers))
	symbols = append(symbols, ticker)
	symbols = append(symbols, c.indices...)
	symbols = append(symbols, peers...)
	prices := c.fetchPrices(ctx, symbols)

	if c.extractor != nil {
		c.extractAll(ctx, &bundle)
	}
	bundle.CollectedAt = c.now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.Snapshot{News: bundle, Prices: prices}, nil
}

func (c *Collector) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout > 0 {
		return context.WithTimeout(ctx, c.callTimeout)
	}
	return context.WithCancel(ctx)
}

// fetchNews never fails: a source error is logged and yields no articles.
func (c *Collector) fetchNews(ctx context.Context, symbol string) []models.Article {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	articles, err := c.news.GetNews(callCtx, symbol, c.newsCount)
	if err != nil {
		c.logger.Warn().Str("symbol", symbol).Err(err).Msg("news source unavailable")
		return []models.Article{}
	}
	out := make([]models.Article, len(articles))
	copy(out, articles)
	for i := range out {
		if out[i].SourceTicker == "" {
			out[i].SourceTicker = symbol
		}
	}
	return out
}

func (c *Collector) fetchNewsParallel(ctx context.Context, symbols []string) map[string][]models.Article {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string][]models.Article, len(symbols))
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			articles := c.fetchNews(ctx, symbol)
			mu.Lock()
			out[symbol] = articles
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return out
}

func (c *Collector) discoverPeers(ctx context.Context, ticker string) []string {
	if c.peers == nil {
		return []string{}
	}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	peers, err := c.peers.GetPeers(callCtx, ticker)
	if err != nil {
		c.logger.Warn().Str("ticker", ticker).Err(err).Msg("peer discovery unavailable")
		return []string{}
	}
	if peers == nil {
		peers = []string{}
	}
	return peers
}

// fetchPrices quotes every symbol concurrently, one call per symbol, so a
// bad symbol only loses its own quote.
func (c *Collector) fetchPrices(ctx context.Context, symbols []string) map[string]*models.PriceSnapshot {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]*models.PriceSnapshot, len(symbols))
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			callCtx, cancel := c.callContext(ctx)
			defer cancel()

			quotes, err := c.quotes.GetQuotes(callCtx, []string{symbol})
			if err != nil {
				c.logger.Warn().Str("symbol", symbol).Err(err).Msg("quote unavailable")
				return
			}
			snap, ok := quotes[symbol]
			if !ok || snap == nil {
				c.logger.Warn().Str("symbol", symbol).Msg("no quote returned")
				return
			}
			mu.Lock()
			out[symbol] = snap
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return out
}

// extractAll fills FullText where it is missing. Lists are copied before
// enrichment, extraction is bounded by a semaphore and a failure leaves the
// article as fetched.
func (c *Collector) extractAll(ctx context.Context, bundle *models.NewsBundle) {
	semaphore := make(chan struct{}, c.extractConcurrency)
	var wg sync.WaitGroup

	enrich := func(list []models.Article) []models.Article {
		out := make([]models.Article, len(list))
		copy(out, list)
		for i := range out {
			if out[i].FullText != "" || out[i].URL == "" {
				continue
			}
			wg.Add(1)
			go func(article *models.Article) {
				defer wg.Done()
				select {
				case semaphore <- struct{}{}:
				case <-ctx.Done():
					return
				}
				defer func() { <-semaphore }()

				callCtx, cancel := c.callContext(ctx)
				defer cancel()
				text, err := c.extractor.Extract(callCtx, article.URL)
				if err != nil {
					c.logger.Debug().Str("url", article.URL).Err(err).Msg("article text extraction failed")
					return
				}
				article.FullText = text
			}(&out[i])
		}
		return out
	}

	bundle.TickerArticles = enrich(bundle.TickerArticles)
	for idx, list := range bundle.MarketArticles {
		bundle.MarketArticles[idx] = enrich(list)
	}
	for peer, list := range bundle.PeerArticles {
		bundle.PeerArticles[peer] = enrich(list)
	}
	wg.Wait()
}
