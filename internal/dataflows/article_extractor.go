package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

const maxExtractedRunes = 20000

// Candidate containers for the article body, most specific first.
var contentSelectors = []string{
	"article .caas-body",
	".article-content", ".entry-content", ".post-content",
	".article-body", ".story-body", "[itemprop='articleBody']",
	"article",
	".content",
}

// ArticleExtractor downloads article pages and pulls the readable body out
// of the HTML.
type ArticleExtractor struct {
	client *resty.Client
	logger arbor.ILogger
}

// NewArticleExtractor creates an extractor with the given per-request timeout.
func NewArticleExtractor(timeout time.Duration, logger arbor.ILogger) *ArticleExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; pricemove/1.0)")
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &ArticleExtractor{client: client, logger: logger}
}

func (e *ArticleExtractor) Extract(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", nil
	}

	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{StatusCode: resp.StatusCode(), Endpoint: url, Message: resp.Status()}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}

	text := ExtractArticleText(doc)
	e.logger.Debug().Str("url", url).Int("chars", len(text)).Msg("article text extracted")
	return text, nil
}

// ExtractArticleText returns the paragraph text of the first content
// container that yields any, or "" when the page has no recognizable body.
func ExtractArticleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := paragraphText(sel); text != "" {
			return capRunes(text, maxExtractedRunes)
		}
	}

	// Fall back to every paragraph on the page.
	return capRunes(paragraphText(doc.Selection), maxExtractedRunes)
}

func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := collapseSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
