package significance

import (
	"fmt"
	"strings"

	"github.com/dyike/pricemove/internal/models"
)

const systemPrompt = `You are a financial news analyst. You judge how much a set of news articles explains a stock's price movement today.
Score significance from 0.0 (no influence) to 1.0 (the move is fully explained).
Weigh news relevance more than price correlation. Old articles count less unless they describe an ongoing event.
Only return articles from the provided list. Do not invent or edit articles.`

func comparisonPrompt(ticker string, tickerPrice *models.PriceSnapshot, tickerNews []models.Article,
	source string, sourcePrice *models.PriceSnapshot, batch []models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "How much did %s's price movement and news influence %s's price movement today?\n\n", source, ticker)
	writePrice(&b, ticker, tickerPrice)
	if len(tickerNews) > 0 {
		fmt.Fprintf(&b, "\nRecent %s headlines:\n", ticker)
		for i, a := range tickerNews {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", a.Title)
		}
	}
	b.WriteString("\n")
	writePrice(&b, source, sourcePrice)
	fmt.Fprintf(&b, "\nNews for %s:\n", source)
	writeArticles(&b, batch)
	writeResponseFormat(&b, source)
	return b.String()
}

func companyPrompt(ticker string, tickerPrice *models.PriceSnapshot, batch []models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "How much does %s's own company news explain its price movement today?\n\n", ticker)
	writePrice(&b, ticker, tickerPrice)
	fmt.Fprintf(&b, "\nCompany news for %s:\n", ticker)
	writeArticles(&b, batch)
	writeResponseFormat(&b, ticker)
	return b.String()
}

func writePrice(b *strings.Builder, symbol string, p *models.PriceSnapshot) {
	fmt.Fprintf(b, "## %s price action\n", symbol)
	if p == nil {
		b.WriteString("- Price data unavailable\n")
		return
	}
	fmt.Fprintf(b, "- Price: $%s\n", p.RegularPrice.StringFixed(2))
	fmt.Fprintf(b, "- Change: $%s (%s%%)\n", p.RegularChange.StringFixed(2), p.RegularChangePct.StringFixed(2))
	fmt.Fprintf(b, "- Previous close: $%s\n", p.PreviousClose.StringFixed(2))
	fmt.Fprintf(b, "- Day range: $%s - $%s\n", p.DayLow.StringFixed(2), p.DayHigh.StringFixed(2))
	if p.Volume > 0 {
		fmt.Fprintf(b, "- Volume: %d\n", p.Volume)
	}
	if p.HasPostMarket() {
		fmt.Fprintf(b, "- After hours: %s%%\n", p.PostMarketChangePct.StringFixed(2))
	}
}

func writeArticles(b *strings.Builder, batch []models.Article) {
	for i, a := range batch {
		fmt.Fprintf(b, "%d. %s\n", i+1, a.Title)
		if a.URL != "" {
			fmt.Fprintf(b, "   URL: %s\n", a.URL)
		}
		if a.Publisher != "" {
			fmt.Fprintf(b, "   Publisher: %s\n", a.Publisher)
		}
		if !a.PublishedAt.IsZero() {
			fmt.Fprintf(b, "   Published: %s\n", a.PublishedAt.Format("2006-01-02 15:04 MST"))
		}
		text, truncated := a.ScoringText()
		if text == "" {
			continue
		}
		label := "Summary"
		if a.FullText != "" {
			label = "Article"
		}
		fmt.Fprintf(b, "   %s: %s\n", label, text)
		if truncated {
			fmt.Fprintf(b, "   %s\n", models.TruncationMarker())
		}
	}
}

func writeResponseFormat(b *strings.Builder, key string) {
	fmt.Fprintf(b, `
Respond with JSON of the form:
{"%s": {"significance": <number 0.0-1.0>, "articles": [{"title": "...", "url": "..."}]}}
List only the articles above that support the influence, copying title and url exactly. Use an empty list when none do.
`, key)
}
