// Package cache decides whether a stored analysis is fresh enough to serve
// instead of running the workflow again.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/storage"
)

const DefaultFreshnessWindow = 30 * time.Minute

type Decision int

const (
	Miss Decision = iota
	Hit
)

func (d Decision) String() string {
	if d == Hit {
		return "hit"
	}
	return "miss"
}

type Gate struct {
	store  storage.AnalysisStore
	window time.Duration
	now    func() time.Time
	logger arbor.ILogger
}

type Option func(*Gate)

func WithWindow(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(logger arbor.ILogger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGate(store storage.AnalysisStore, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		window: DefaultFreshnessWindow,
		now:    time.Now,
		logger: arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Window() time.Duration { return g.window }

// Check reports Hit with the stored record when one exists and was updated
// within the window, inclusive. A record stamped in the future counts as a
// miss. A miss may still return the stale record.
func (g *Gate) Check(ctx context.Context, ticker string) (Decision, *models.AnalysisRecord, error) {
	rec, err := g.store.LoadAnalysis(ctx, ticker)
	if err != nil {
		return Miss, nil, fmt.Errorf("load analysis for %s: %w", ticker, err)
	}
	if rec == nil {
		g.logger.Debug().Str("ticker", ticker).Msg("cache miss: no stored analysis")
		return Miss, nil, nil
	}

	age := g.now().Sub(rec.UpdatedAt)
	if age < 0 {
		g.logger.Warn().Str("ticker", ticker).Str("age", age.Round(time.Second).String()).Msg("cache miss: stored analysis is from the future")
		return Miss, rec, nil
	}
	if age <= g.window {
		g.logger.Info().Str("ticker", ticker).Str("age", age.Round(time.Second).String()).Msg("cache hit")
		return Hit, rec, nil
	}
	g.logger.Debug().
		Str("ticker", ticker).
		Str("age", age.Round(time.Second).String()).
		Str("window", g.window.String()).
		Msg("cache miss: stored analysis is stale")
	return Miss, rec, nil
}
