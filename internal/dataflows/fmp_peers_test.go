package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFMPPeerDiscovery_RanksByMarketCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stable/stock-peers", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`[
			{"symbol":"DELL","mktCap":90},
			{"symbol":"MSFT","mktCap":3000},
			{"symbol":"HPQ","mktCap":30},
			{"symbol":"GOOGL","mktCap":2000},
			{"symbol":"AAPL","mktCap":3500}
		]`))
	}))
	defer srv.Close()

	p := NewFMPPeerDiscovery("key", nil, WithFMPBaseURL(srv.URL))
	peers, err := p.GetPeers(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "GOOGL", "DELL"}, peers)
}

func TestRankPeers_TiesKeepProviderOrder(t *testing.T) {
	peers := []fmpPeer{
		{Symbol: "B", MktCap: 10},
		{Symbol: "A", MktCap: 10},
		{Symbol: "C", MktCap: 20},
		{Symbol: "b", MktCap: 5},
	}
	assert.Equal(t, []string{"C", "B", "A"}, rankPeers("X", peers, 3))
	assert.Equal(t, []string{"C"}, rankPeers("X", peers, 1))
	assert.Empty(t, rankPeers("X", nil, 3))
}

func TestFMPPeerDiscovery_RequiresKey(t *testing.T) {
	p := NewFMPPeerDiscovery("", nil)
	_, err := p.GetPeers(context.Background(), "AAPL")
	assert.Error(t, err)
}
