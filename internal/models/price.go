package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one quote per ticker per collection cycle.
type PriceSnapshot struct {
	Ticker           string          `json:"ticker"`
	RegularPrice     decimal.Decimal `json:"regular_market_price"`
	RegularChange    decimal.Decimal `json:"regular_market_change"`
	RegularChangePct decimal.Decimal `json:"regular_market_change_percent"`
	PreviousClose    decimal.Decimal `json:"regular_market_previous_close"`
	Open             decimal.Decimal `json:"regular_market_open"`
	DayHigh          decimal.Decimal `json:"regular_market_day_high"`
	DayLow           decimal.Decimal `json:"regular_market_day_low"`
	Volume           int64           `json:"regular_market_volume"`

	PostMarketPrice     *decimal.Decimal `json:"post_market_price,omitempty"`
	PostMarketChange    *decimal.Decimal `json:"post_market_change,omitempty"`
	PostMarketChangePct *decimal.Decimal `json:"post_market_change_percent,omitempty"`

	FiftyTwoWeekHigh *decimal.Decimal `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *decimal.Decimal `json:"fifty_two_week_low,omitempty"`

	FetchedAt time.Time `json:"timestamp"`
}

// HasPostMarket reports whether an after-hours change is available.
func (p *PriceSnapshot) HasPostMarket() bool {
	return p != nil && p.PostMarketChangePct != nil
}

// DecimalPtr returns a pointer to d, or nil when d is zero.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}
