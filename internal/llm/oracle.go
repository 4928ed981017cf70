// Package llm turns chat-completion providers into the scoring oracle used
// by the significance and summary stages.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/models"
)

// Request is a single prompt exchange.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON object when it supports that mode.
	JSON bool
}

// Completer is implemented by every provider backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// SourceScore is the structured answer for one source.
type SourceScore struct {
	Significance float64          `json:"significance"`
	Articles     []models.Article `json:"articles"`
}

// Oracle wraps a Completer with the two calls the pipeline makes.
type Oracle struct {
	completer          Completer
	scoringTemperature float32
	summaryTemperature float32
	maxTokens          int
	logger             arbor.ILogger
}

type OracleOption func(*Oracle)

func WithScoringTemperature(t float32) OracleOption {
	return func(o *Oracle) { o.scoringTemperature = t }
}

func WithSummaryTemperature(t float32) OracleOption {
	return func(o *Oracle) { o.summaryTemperature = t }
}

func WithMaxTokens(n int) OracleOption {
	return func(o *Oracle) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

func WithLogger(logger arbor.ILogger) OracleOption {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewOracle(completer Completer, opts ...OracleOption) *Oracle {
	o := &Oracle{
		completer:          completer,
		scoringTemperature: 0.2,
		summaryTemperature: 0.3,
		maxTokens:          4096,
		logger:             arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScoreRelevance asks for a structured significance object keyed by source.
func (o *Oracle) ScoreRelevance(ctx context.Context, systemPrompt, userPrompt string) (map[string]SourceScore, error) {
	raw, err := o.completer.Complete(ctx, Request{
		System:      systemPrompt,
		User:        userPrompt,
		Temperature: o.scoringTemperature,
		MaxTokens:   o.maxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	scores, err := ParseScores(raw)
	if err != nil {
		o.logger.Warn().Err(err).Int("response_chars", len(raw)).Msg("unparseable scoring response")
		return nil, err
	}
	return scores, nil
}

// Summarize asks for plain prose. No response schema is requested.
func (o *Oracle) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, err := o.completer.Complete(ctx, Request{
		System:      systemPrompt,
		User:        userPrompt,
		Temperature: o.summaryTemperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type wireScore struct {
	Significance json.RawMessage `json:"significance"`
	Articles     []wireArticle   `json:"articles"`
}

// wireArticle is lenient about field types since models echo articles
// back with free-form timestamps.
type wireArticle struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
	Text      string `json:"text"`
	Source    string `json:"source"`
}

// ParseScores decodes a scoring response. Markdown fences and text around
// the outermost JSON object are tolerated.
func ParseScores(raw string) (map[string]SourceScore, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object found", models.ErrOracleResponse)
	}

	var wire map[string]wireScore
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrOracleResponse, err)
	}
	if len(wire) == 0 {
		return nil, fmt.Errorf("%w: empty object", models.ErrOracleResponse)
	}

	out := make(map[string]SourceScore, len(wire))
	for source, ws := range wire {
		sig, err := parseSignificance(ws.Significance)
		if err != nil {
			return nil, fmt.Errorf("%w: source %s: %v", models.ErrOracleResponse, source, err)
		}
		articles := make([]models.Article, 0, len(ws.Articles))
		for _, wa := range ws.Articles {
			articles = append(articles, models.Article{
				Title:        wa.Title,
				Summary:      wa.Summary,
				URL:          wa.URL,
				Publisher:    wa.Publisher,
				FullText:     wa.Text,
				SourceTicker: wa.Source,
			})
		}
		out[strings.ToUpper(strings.TrimSpace(source))] = SourceScore{Significance: sig, Articles: articles}
	}
	return out, nil
}

func parseSignificance(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing significance")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("significance is neither number nor string")
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
