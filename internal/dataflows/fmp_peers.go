package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

const defaultFMPURL = "https://financialmodelingprep.com"

// FMPPeerDiscovery ranks a ticker's peers by market capitalization using
// the Financial Modeling Prep stock-peers endpoint.
type FMPPeerDiscovery struct {
	client *resty.Client
	apiKey string
	limit  int
	retry  *RetryConfig
	logger arbor.ILogger
}

type FMPOption func(*FMPPeerDiscovery)

func WithFMPBaseURL(baseURL string) FMPOption {
	return func(p *FMPPeerDiscovery) {
		p.client.SetBaseURL(baseURL)
	}
}

func WithFMPRetry(cfg *RetryConfig) FMPOption {
	return func(p *FMPPeerDiscovery) {
		p.retry = cfg
	}
}

// WithPeerLimit caps the number of peers returned. Values below 1 are ignored.
func WithPeerLimit(n int) FMPOption {
	return func(p *FMPPeerDiscovery) {
		if n > 0 {
			p.limit = n
		}
	}
}

func NewFMPPeerDiscovery(apiKey string, logger arbor.ILogger, opts ...FMPOption) *FMPPeerDiscovery {
	client := resty.New()
	client.SetBaseURL(defaultFMPURL)
	client.SetTimeout(30 * time.Second)

	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	p := &FMPPeerDiscovery{
		client: client,
		apiKey: apiKey,
		limit:  3,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type fmpPeer struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Price       float64 `json:"price"`
	MktCap      float64 `json:"mktCap"`
}

// GetPeers returns at most limit peer symbols, largest market cap first.
// Equal market caps keep the provider's order.
func (p *FMPPeerDiscovery) GetPeers(ctx context.Context, symbol string) ([]string, error) {
	if p.apiKey == "" {
		return nil, errors.New("FMP API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var peers []fmpPeer
	err := WithRetry(ctx, p.retry, func() error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{"symbol": symbol, "apikey": p.apiKey}).
			Get("/stable/stock-peers")
		if err != nil {
			return fmt.Errorf("fmp peers request: %w", err)
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Endpoint: "/stable/stock-peers", Message: resp.String()}
		}
		if err := json.Unmarshal(resp.Body(), &peers); err != nil {
			return fmt.Errorf("decode fmp peers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rankPeers(symbol, peers, p.limit), nil
}

// rankPeers sorts by market cap descending, drops the ticker itself and
// duplicates, and keeps the first limit symbols.
func rankPeers(ticker string, peers []fmpPeer, limit int) []string {
	sorted := make([]fmpPeer, len(peers))
	copy(sorted, peers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MktCap > sorted[j].MktCap })

	seen := map[string]bool{ticker: true}
	out := make([]string, 0, limit)
	for _, peer := range sorted {
		sym := NormalizeSymbol(peer.Symbol)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
		if len(out) == limit {
			break
		}
	}
	return out
}
