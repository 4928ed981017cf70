package models

import "time"

// NewsBundle is the news gathered for one analysis run.
type NewsBundle struct {
	Ticker         string               `json:"ticker"`
	TickerArticles []Article            `json:"ticker_articles"`
	MarketArticles map[string][]Article `json:"market_articles"`
	PeerArticles   map[string][]Article `json:"peer_articles"`
	// Peers keeps the discovery order (market cap descending).
	Peers       []string  `json:"peers"`
	Indices     []string  `json:"indices"`
	CollectedAt time.Time `json:"collected_at"`
}

// Snapshot is the collector output: news plus quotes keyed by symbol.
// Symbols whose quote failed are absent from Prices.
type Snapshot struct {
	News   NewsBundle                `json:"news"`
	Prices map[string]*PriceSnapshot `json:"prices"`
}

// Price returns the quote for symbol, or nil.
func (s *Snapshot) Price(symbol string) *PriceSnapshot {
	if s == nil || s.Prices == nil {
		return nil
	}
	return s.Prices[symbol]
}
