package summary

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dyike/pricemove/internal/models"
)

const systemPrompt = `You are an expert financial analyst specializing in concise stock price movement explanations.

Your task is to explain why a stock's price moved TODAY in 1-2 SENTENCES MAXIMUM.

Focus on TODAY's movement:
- Comment on the regular market hours price change
- If after-hours data is provided, also comment on the after-hours movement
- Connect the news articles to these specific price movements

Format:
[Ticker] went [up/down] [X]% today after [primary driver]. [After-hours detail or one supporting detail].

Example (with after-hours):
Affirm stock went up 5.3% today after earnings surprised by 12%. After-hours, it gained another 2.1% as analysts upgraded their price targets.

Example (regular hours only):
Tesla stock fell 3.2% today following reports of production delays at its Berlin facility.

Requirements:
- State today's direction and magnitude first
- Name the primary driver immediately after
- Add one supporting detail only if highly relevant
- Be direct, factual and quantitative

Return plain text only.`

func formatChange(pct decimal.Decimal) string {
	f, _ := pct.Float64()
	return fmt.Sprintf("%+.2f%%", f)
}

func userPrompt(ticker string, buckets Buckets, price *models.PriceSnapshot) string {
	var sb strings.Builder

	regular := "n/a"
	var afterHours string
	if price != nil {
		regular = formatChange(price.RegularChangePct)
		if price.HasPostMarket() {
			afterHours = formatChange(*price.PostMarketChangePct)
		}
	}

	fmt.Fprintf(&sb, "Stock Ticker: %s\n\n", ticker)
	sb.WriteString("TODAY's Price Movement:\n")
	fmt.Fprintf(&sb, "- Regular Market: %s\n", regular)
	if afterHours != "" {
		fmt.Fprintf(&sb, "- After-Hours: %s\n", afterHours)
	}
	fmt.Fprintf(&sb, "\nTotal Significant Articles: %d\n\n", buckets.Len())

	writeBucket(&sb, "Company-Specific News", buckets.Company, false)
	writeBucket(&sb, "Market/Index News", buckets.Index, true)
	writeBucket(&sb, "Peer Company News", buckets.Peer, true)

	fmt.Fprintf(&sb, "\nTask: Write 1-2 sentences explaining %s's price movement TODAY.\n", ticker)
	fmt.Fprintf(&sb, "Include the regular market change (%s)", regular)
	if afterHours != "" {
		fmt.Fprintf(&sb, " and the after-hours change (%s)", afterHours)
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Format: %s went [up/down] [X]%% today after [primary driver]. [After-hours detail if applicable].\n", ticker)
	sb.WriteString("Be direct, factual, and quantitative.")
	return sb.String()
}

func writeBucket(sb *strings.Builder, heading string, items []SignificantArticle, withSource bool) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "### %s (%d articles)\n\n", heading, len(items))
	for i, item := range items {
		fmt.Fprintf(sb, "%d. %s\n", i+1, item.Article.Title)
		if withSource {
			fmt.Fprintf(sb, "   Source: %s\n", item.Source)
		}
		if item.Article.Summary != "" {
			fmt.Fprintf(sb, "   Summary: %s\n", item.Article.Summary)
		}
		published := "N/A"
		if !item.Article.PublishedAt.IsZero() {
			published = item.Article.PublishedAt.UTC().Format("2006-01-02 15:04 MST")
		}
		fmt.Fprintf(sb, "   Published: %s\n", published)
		fmt.Fprintf(sb, "   Significance: %.2f\n\n", item.Significance)
	}
}
