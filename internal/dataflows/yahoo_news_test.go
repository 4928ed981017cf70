package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooNewsSource_KeepsStoriesOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("newsCount"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"news":[
			{"title":"Apple beats","publisher":"Reuters","link":"https://x.test/a","providerPublishTime":1700000000,"type":"STORY"},
			{"title":"Apple video","publisher":"Yahoo","link":"https://x.test/v","providerPublishTime":1700000100,"type":"VIDEO"},
			{"title":" Apple guidance ","publisher":"CNBC","link":"https://x.test/b","type":"story"}
		]}`))
	}))
	defer srv.Close()

	src := NewYahooNewsSource(nil, WithYahooBaseURL(srv.URL))
	articles, err := src.GetNews(context.Background(), "aapl", 5)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Apple beats", articles[0].Title)
	assert.Equal(t, "https://x.test/a", articles[0].URL)
	assert.Equal(t, "AAPL", articles[0].SourceTicker)
	assert.Equal(t, int64(1700000000), articles[0].PublishedAt.Unix())
	assert.Equal(t, "Apple guidance", articles[1].Title)
	assert.True(t, articles[1].PublishedAt.IsZero())
}

func TestYahooNewsSource_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewYahooNewsSource(nil, WithYahooBaseURL(srv.URL), WithYahooRetry(&RetryConfig{}))
	_, err := src.GetNews(context.Background(), "AAPL", 10)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestYahooNewsSource_RejectsBadSymbol(t *testing.T) {
	src := NewYahooNewsSource(nil)
	_, err := src.GetNews(context.Background(), "   ", 10)
	assert.Error(t, err)
}
