package dataflows

import (
	"context"

	"github.com/dyike/pricemove/internal/models"
)

// QuoteSource returns quotes for the symbols it could resolve. Missing
// symbols are simply absent from the map.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.PriceSnapshot, error)
}

// NewsSource returns up to count story articles for a symbol.
type NewsSource interface {
	GetNews(ctx context.Context, symbol string, count int) ([]models.Article, error)
}

// PeerDiscovery returns peer symbols ranked by market cap, largest first.
type PeerDiscovery interface {
	GetPeers(ctx context.Context, symbol string) ([]string, error)
}

// ArticleTextExtractor fetches the readable body of an article. An empty
// string with a nil error means nothing usable was found.
type ArticleTextExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}
