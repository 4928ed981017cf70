package dataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooQuoteSource_MapsQuotes(t *testing.T) {
	src := NewYahooQuoteSource(nil)
	src.now = func() time.Time { return time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC) }
	src.list = func(symbols []string) ([]*finance.Quote, error) {
		assert.Equal(t, []string{"AAPL", "^GSPC", "NOPE"}, symbols)
		return []*finance.Quote{
			{
				Symbol:                     "AAPL",
				RegularMarketPrice:         190.5,
				RegularMarketChange:        2.5,
				RegularMarketChangePercent: 1.33,
				RegularMarketPreviousClose: 188,
				RegularMarketDayHigh:       191,
				RegularMarketDayLow:        187.2,
				RegularMarketVolume:        1000,
				PostMarketPrice:            191.5,
				PostMarketChange:           1,
				PostMarketChangePercent:    0.52,
			},
			{Symbol: "^GSPC", RegularMarketPrice: 5000, RegularMarketChangePercent: -0.4},
		}, nil
	}

	quotes, err := src.GetQuotes(context.Background(), []string{"AAPL", "^GSPC", "NOPE"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	aapl := quotes["AAPL"]
	require.NotNil(t, aapl)
	assert.Equal(t, "190.5", aapl.RegularPrice.String())
	assert.Equal(t, "1.33", aapl.RegularChangePct.String())
	assert.Equal(t, int64(1000), aapl.Volume)
	require.True(t, aapl.HasPostMarket())
	assert.Equal(t, "0.52", aapl.PostMarketChangePct.String())
	assert.Equal(t, 2026, aapl.FetchedAt.Year())

	assert.False(t, quotes["^GSPC"].HasPostMarket())
	assert.NotContains(t, quotes, "NOPE")
}

func TestYahooQuoteSource_PropagatesFailure(t *testing.T) {
	src := NewYahooQuoteSource(nil)
	src.retry = &RetryConfig{}
	src.list = func([]string) ([]*finance.Quote, error) { return nil, errors.New("boom") }

	_, err := src.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestYahooQuoteSource_HonoursDeadline(t *testing.T) {
	src := NewYahooQuoteSource(nil)
	src.retry = &RetryConfig{}
	block := make(chan struct{})
	defer close(block)
	src.list = func([]string) ([]*finance.Quote, error) {
		<-block
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := src.GetQuotes(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
