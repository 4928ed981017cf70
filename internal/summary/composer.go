// Package summary turns significance records into a one or two sentence
// explanation of the day's move.
package summary

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

// DefaultThreshold is the minimum significance for an article to be cited.
const DefaultThreshold = 0.5

// Summarizer is the prose half of the oracle.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SignificantArticle is an article carried over from a source that met
// the threshold, tagged with that source's score.
type SignificantArticle struct {
	Article      models.Article
	Source       string
	Kind         models.SourceKind
	Significance float64
}

// Buckets groups significant articles by source kind. Each bucket keeps
// the descending significance order.
type Buckets struct {
	Company []SignificantArticle
	Index   []SignificantArticle
	Peer    []SignificantArticle
}

func (b Buckets) Len() int {
	return len(b.Company) + len(b.Index) + len(b.Peer)
}

type Composer struct {
	summarizer Summarizer
	threshold  float64
	logger     arbor.ILogger
}

type Option func(*Composer)

func WithThreshold(t float64) Option {
	return func(c *Composer) {
		if t >= 0 && t <= 1 {
			c.threshold = t
		}
	}
}

func WithLogger(logger arbor.ILogger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewComposer(summarizer Summarizer, opts ...Option) *Composer {
	c := &Composer{
		summarizer: summarizer,
		threshold:  DefaultThreshold,
		logger:     arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NoSignificantNews is returned verbatim when nothing met the threshold.
func NoSignificantNews(ticker string) string {
	return fmt.Sprintf("No news articles were found to have significant relevance (>0.5 significance score) to %s's recent price movement.", ticker)
}

// Compose writes the explanation for ticker. The oracle is not called when
// no article meets the threshold.
func (c *Composer) Compose(ctx context.Context, ticker string, records map[string]models.SignificanceRecord,
	price *models.PriceSnapshot) (string, error) {
	significant := SelectSignificant(records, c.threshold)
	if len(significant) == 0 {
		c.logger.Info().Str("ticker", ticker).Msg("no articles met the significance threshold")
		return NoSignificantNews(ticker), nil
	}

	buckets := Group(significant)
	c.logger.Info().
		Str("ticker", ticker).
		Int("company", len(buckets.Company)).
		Int("index", len(buckets.Index)).
		Int("peer", len(buckets.Peer)).
		Msg("composing summary")

	text, err := c.summarizer.Summarize(ctx, systemPrompt, userPrompt(ticker, buckets, price))
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", ticker, err)
	}
	return text, nil
}

// SelectSignificant flattens the articles of every record at or above
// threshold, sorted by significance descending. Ties keep source id order
// so the output is deterministic.
func SelectSignificant(records map[string]models.SignificanceRecord, threshold float64) []SignificantArticle {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []SignificantArticle
	for _, id := range ids {
		rec := records[id]
		if rec.Significance < threshold {
			continue
		}
		for _, a := range rec.Articles {
			out = append(out, SignificantArticle{
				Article:      a,
				Source:       id,
				Kind:         rec.Kind,
				Significance: rec.Significance,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Significance > out[j].Significance
	})
	return out
}

// Group splits articles into company, index and peer buckets.
func Group(articles []SignificantArticle) Buckets {
	var b Buckets
	for _, a := range articles {
		switch a.Kind {
		case models.SourceCompany:
			b.Company = append(b.Company, a)
		case models.SourceIndex:
			b.Index = append(b.Index, a)
		default:
			b.Peer = append(b.Peer, a)
		}
	}
	return b
}
