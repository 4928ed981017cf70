package dataflows

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

// YahooQuoteSource fetches quotes through finance-go.
type YahooQuoteSource struct {
	list   func(symbols []string) ([]*finance.Quote, error)
	retry  *RetryConfig
	logger arbor.ILogger
	now    func() time.Time
}

func NewYahooQuoteSource(logger arbor.ILogger) *YahooQuoteSource {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &YahooQuoteSource{
		list:   listYahooQuotes,
		retry:  DefaultRetryConfig(),
		logger: logger,
		now:    time.Now,
	}
}

func listYahooQuotes(symbols []string) ([]*finance.Quote, error) {
	iter := quote.List(symbols)
	var out []*finance.Quote
	for iter.Next() {
		out = append(out, iter.Quote())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQuotes looks up all symbols in one request. Symbols Yahoo does not know
// are left out of the result.
func (y *YahooQuoteSource) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.PriceSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]*models.PriceSnapshot{}, nil
	}

	var quotes []*finance.Quote
	err := WithRetry(ctx, y.retry, func() error {
		// finance-go takes no context, so the call is raced against ctx.
		type result struct {
			quotes []*finance.Quote
			err    error
		}
		done := make(chan result, 1)
		go func() {
			q, err := y.list(symbols)
			done <- result{q, err}
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-done:
			if r.err != nil {
				return fmt.Errorf("yahoo quotes: %w", r.err)
			}
			quotes = r.quotes
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	fetchedAt := y.now().UTC()
	out := make(map[string]*models.PriceSnapshot, len(quotes))
	for _, q := range quotes {
		if q == nil || q.Symbol == "" {
			continue
		}
		out[NormalizeSymbol(q.Symbol)] = snapshotFromYahoo(q, fetchedAt)
	}
	y.logger.Debug().Int("requested", len(symbols)).Int("resolved", len(out)).Msg("yahoo quotes fetched")
	return out, nil
}

func snapshotFromYahoo(q *finance.Quote, fetchedAt time.Time) *models.PriceSnapshot {
	snap := &models.PriceSnapshot{
		Ticker:           NormalizeSymbol(q.Symbol),
		RegularPrice:     decimal.NewFromFloat(q.RegularMarketPrice),
		RegularChange:    decimal.NewFromFloat(q.RegularMarketChange),
		RegularChangePct: decimal.NewFromFloat(q.RegularMarketChangePercent),
		PreviousClose:    decimal.NewFromFloat(q.RegularMarketPreviousClose),
		Open:             decimal.NewFromFloat(q.RegularMarketOpen),
		DayHigh:          decimal.NewFromFloat(q.RegularMarketDayHigh),
		DayLow:           decimal.NewFromFloat(q.RegularMarketDayLow),
		Volume:           int64(q.RegularMarketVolume),
		FiftyTwoWeekHigh: models.DecimalPtr(decimal.NewFromFloat(q.FiftyTwoWeekHigh)),
		FiftyTwoWeekLow:  models.DecimalPtr(decimal.NewFromFloat(q.FiftyTwoWeekLow)),
		FetchedAt:        fetchedAt,
	}
	if q.PostMarketPrice != 0 {
		snap.PostMarketPrice = models.DecimalPtr(decimal.NewFromFloat(q.PostMarketPrice))
		change := decimal.NewFromFloat(q.PostMarketChange)
		pct := decimal.NewFromFloat(q.PostMarketChangePercent)
		snap.PostMarketChange = &change
		snap.PostMarketChangePct = &pct
	}
	return snap
}
