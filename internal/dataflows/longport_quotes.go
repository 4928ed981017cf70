package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

// Yahoo-style index symbols and their Longport equivalents.
var longportIndexSymbols = map[string]string{
	"^GSPC": ".SPX.US",
	"^DJI":  ".DJI.US",
	"^IXIC": ".IXIC.US",
}

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportQuoteSource reads real-time quotes from the Longport OpenAPI.
type LongportQuoteSource struct {
	quoteCtx *quote.QuoteContext
	logger   arbor.ILogger
}

func NewLongportQuoteSource(cfg LongportConfig, logger arbor.ILogger) (*LongportQuoteSource, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &LongportQuoteSource{quoteCtx: quoteContext, logger: logger}, nil
}

func (l *LongportQuoteSource) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.PriceSnapshot, error) {
	out := make(map[string]*models.PriceSnapshot, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	// Longport answers with its own symbols; map them back.
	back := make(map[string]string, len(symbols))
	lpSymbols := make([]string, 0, len(symbols))
	for _, s := range symbols {
		lp := ToLongportSymbol(s)
		back[lp] = NormalizeSymbol(s)
		lpSymbols = append(lpSymbols, lp)
	}

	quotes, err := l.quoteCtx.Quote(ctx, lpSymbols)
	if err != nil {
		return nil, fmt.Errorf("longport quotes: %w", err)
	}

	for _, q := range quotes {
		if q == nil {
			continue
		}
		sym, ok := back[q.Symbol]
		if !ok {
			continue
		}
		out[sym] = snapshotFromLongport(sym, q)
	}
	l.logger.Debug().Int("requested", len(symbols)).Int("resolved", len(out)).Msg("longport quotes fetched")
	return out, nil
}

func (l *LongportQuoteSource) Close() {
	if l.quoteCtx != nil {
		l.quoteCtx.Close()
	}
}

// ToLongportSymbol maps a Yahoo style symbol to Longport's market-suffixed
// form. Symbols that already carry a market suffix pass through.
func ToLongportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if lp, ok := longportIndexSymbols[symbol]; ok {
		return lp
	}
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

func snapshotFromLongport(symbol string, q *quote.SecurityQuote) *models.PriceSnapshot {
	last := deref(q.LastDone)
	prev := deref(q.PrevClose)
	change := last.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(decimal.NewFromInt(100))
	}

	snap := &models.PriceSnapshot{
		Ticker:           symbol,
		RegularPrice:     last,
		RegularChange:    change,
		RegularChangePct: pct,
		PreviousClose:    prev,
		Open:             deref(q.Open),
		DayHigh:          deref(q.High),
		DayLow:           deref(q.Low),
		Volume:           q.Volume,
		FetchedAt:        time.Unix(q.Timestamp, 0).UTC(),
	}
	if post := q.PostMarketQuote; post != nil && post.LastDone != nil {
		postLast := *post.LastDone
		postChange := postLast.Sub(last)
		postPct := decimal.Zero
		if !last.IsZero() {
			postPct = postChange.Div(last).Mul(decimal.NewFromInt(100))
		}
		snap.PostMarketPrice = &postLast
		snap.PostMarketChange = &postChange
		snap.PostMarketChangePct = &postPct
	}
	return snap
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
