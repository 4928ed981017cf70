package dataflows

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/longportapp/openapi-go/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLongportSymbol(t *testing.T) {
	assert.Equal(t, "AAPL.US", ToLongportSymbol("aapl"))
	assert.Equal(t, ".SPX.US", ToLongportSymbol("^GSPC"))
	assert.Equal(t, "700.HK", ToLongportSymbol("700.HK"))
}

func TestSnapshotFromLongport(t *testing.T) {
	last := decimal.RequireFromString("105")
	prev := decimal.RequireFromString("100")
	post := decimal.RequireFromString("107.1")
	snap := snapshotFromLongport("AAPL", &quote.SecurityQuote{
		Symbol:          "AAPL.US",
		LastDone:        &last,
		PrevClose:       &prev,
		Volume:          42,
		Timestamp:       1700000000,
		PostMarketQuote: &quote.PrePostQuote{LastDone: &post},
	})

	assert.Equal(t, "5", snap.RegularChange.String())
	assert.Equal(t, "5", snap.RegularChangePct.String())
	require.True(t, snap.HasPostMarket())
	assert.Equal(t, "2", snap.PostMarketChangePct.StringFixed(0))
}

func TestLongportQuoteSource_Live(t *testing.T) {
	cfg := LongportConfig{
		AppKey:      os.Getenv("LONGPORT_APP_KEY"),
		AppSecret:   os.Getenv("LONGPORT_APP_SECRET"),
		AccessToken: os.Getenv("LONGPORT_ACCESS_TOKEN"),
	}
	src, err := NewLongportQuoteSource(cfg, nil)
	if err != nil {
		t.Skipf("Skipping test due to missing Longport API credentials: %v", err)
	}
	defer src.Close()

	quotes, err := src.GetQuotes(context.Background(), []string{"AAPL", "^GSPC"})
	require.NoError(t, err)
	assert.NotEmpty(t, quotes)
}
