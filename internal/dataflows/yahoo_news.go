package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

const defaultYahooSearchURL = "https://query2.finance.yahoo.com"

// YahooNewsSource reads ticker news from the Yahoo Finance search API.
type YahooNewsSource struct {
	client *resty.Client
	retry  *RetryConfig
	logger arbor.ILogger
}

type YahooNewsOption func(*YahooNewsSource)

// WithYahooBaseURL points the source at another host, mainly for tests.
func WithYahooBaseURL(baseURL string) YahooNewsOption {
	return func(s *YahooNewsSource) {
		s.client.SetBaseURL(baseURL)
	}
}

func WithYahooRetry(cfg *RetryConfig) YahooNewsOption {
	return func(s *YahooNewsSource) {
		s.retry = cfg
	}
}

func NewYahooNewsSource(logger arbor.ILogger, opts ...YahooNewsOption) *YahooNewsSource {
	client := resty.New()
	client.SetBaseURL(defaultYahooSearchURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; pricemove/1.0)")

	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	s := &YahooNewsSource{
		client: client,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type yahooSearchResponse struct {
	News []yahooNewsItem `json:"news"`
}

type yahooNewsItem struct {
	UUID                string   `json:"uuid"`
	Title               string   `json:"title"`
	Summary             string   `json:"summary"`
	Publisher           string   `json:"publisher"`
	Link                string   `json:"link"`
	ProviderPublishTime int64    `json:"providerPublishTime"`
	Type                string   `json:"type"`
	RelatedTickers      []string `json:"relatedTickers"`
}

// GetNews returns up to count STORY items for symbol. Videos and other
// content types are dropped.
func (s *YahooNewsSource) GetNews(ctx context.Context, symbol string, count int) ([]models.Article, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if count <= 0 {
		count = 10
	}

	var payload yahooSearchResponse
	err := WithRetry(ctx, s.retry, func() error {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"q":           symbol,
				"quotesCount": "0",
				"newsCount":   strconv.Itoa(count),
			}).
			Get("/v1/finance/search")
		if err != nil {
			return fmt.Errorf("yahoo news request: %w", err)
		}
		if resp.IsError() {
			return &APIError{StatusCode: resp.StatusCode(), Endpoint: "/v1/finance/search", Message: resp.String()}
		}
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return fmt.Errorf("decode yahoo news: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	articles := make([]models.Article, 0, len(payload.News))
	for _, item := range payload.News {
		if !strings.EqualFold(item.Type, "STORY") {
			continue
		}
		a := models.Article{
			Title:        strings.TrimSpace(item.Title),
			Summary:      strings.TrimSpace(item.Summary),
			URL:          strings.TrimSpace(item.Link),
			Publisher:    item.Publisher,
			SourceTicker: symbol,
		}
		if item.ProviderPublishTime > 0 {
			a.PublishedAt = time.Unix(item.ProviderPublishTime, 0).UTC()
		}
		articles = append(articles, a)
		if len(articles) == count {
			break
		}
	}

	s.logger.Debug().Str("symbol", symbol).Int("articles", len(articles)).Msg("yahoo news fetched")
	return articles, nil
}
