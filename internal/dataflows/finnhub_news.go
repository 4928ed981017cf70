package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

const defaultFinnhubURL = "https://finnhub.io/api/v1"

// FinnhubNewsSource serves company news from Finnhub. Index symbols
// (prefixed with ^) are answered with Finnhub's general market feed since
// Finnhub has no per-index news.
type FinnhubNewsSource struct {
	client   *resty.Client
	apiKey   string
	lookback time.Duration
	retry    *RetryConfig
	logger   arbor.ILogger
	now      func() time.Time
}

type FinnhubOption func(*FinnhubNewsSource)

func WithFinnhubBaseURL(baseURL string) FinnhubOption {
	return func(s *FinnhubNewsSource) {
		s.client.SetBaseURL(baseURL)
	}
}

func WithFinnhubRetry(cfg *RetryConfig) FinnhubOption {
	return func(s *FinnhubNewsSource) {
		s.retry = cfg
	}
}

func NewFinnhubNewsSource(apiKey string, logger arbor.ILogger, opts ...FinnhubOption) *FinnhubNewsSource {
	client := resty.New()
	client.SetBaseURL(defaultFinnhubURL)
	client.SetTimeout(30 * time.Second)

	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	s := &FinnhubNewsSource{
		client:   client,
		apiKey:   apiKey,
		lookback: 48 * time.Hour,
		retry:    DefaultRetryConfig(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FinnhubNews represents news from Finnhub API
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func (s *FinnhubNewsSource) GetNews(ctx context.Context, symbol string, count int) ([]models.Article, error) {
	if s.apiKey == "" {
		return nil, errors.New("finnhub API key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if count <= 0 {
		count = 10
	}

	path := "/company-news"
	params := map[string]string{"token": s.apiKey}
	if strings.HasPrefix(symbol, "^") {
		path = "/news"
		params["category"] = "general"
	} else {
		to := s.now().UTC()
		from := to.Add(-s.lookback)
		params["symbol"] = symbol
		params["from"] = from.Format("2006-01-02")
		params["to"] = to.Format("2006-01-02")
	}

	var items []FinnhubNews
	err := WithRetry(ctx, s.retry, func() error {
		resp, err := s.client.R().SetContext(ctx).SetQueryParams(params).Get(path)
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Endpoint: path, Message: resp.String()}
		}
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("failed to parse news response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Newest first, then trim to count.
	sort.SliceStable(items, func(i, j int) bool { return items[i].DateTime > items[j].DateTime })
	if len(items) > count {
		items = items[:count]
	}

	articles := make([]models.Article, 0, len(items))
	for _, n := range items {
		articles = append(articles, models.Article{
			Title:        strings.TrimSpace(n.Headline),
			Summary:      strings.TrimSpace(n.Summary),
			URL:          strings.TrimSpace(n.URL),
			Publisher:    n.Source,
			PublishedAt:  time.Unix(n.DateTime, 0).UTC(),
			SourceTicker: symbol,
		})
	}
	s.logger.Debug().Str("symbol", symbol).Int("articles", len(articles)).Msg("finnhub news fetched")
	return articles, nil
}
