package models

import (
	"strings"
	"time"
)

// MaxArticleTextLen bounds the full text handed to the scoring oracle.
const MaxArticleTextLen = 2000

const truncatedMarker = "[Article truncated...]"

// Article is a single news item. It is not modified after the collector
// hands it to downstream stages.
type Article struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	FullText     string    `json:"text,omitempty"`
	URL          string    `json:"url,omitempty"`
	Publisher    string    `json:"publisher,omitempty"`
	PublishedAt  time.Time `json:"published_time,omitempty"`
	SourceTicker string    `json:"source,omitempty"`
}

// NormalizeTitle trims and lower-cases a headline.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ScoringText returns the body used in prompts: the full text cut to
// MaxArticleTextLen runes, or the summary when no text was extracted.
func (a Article) ScoringText() (text string, truncated bool) {
	if a.FullText == "" {
		return a.Summary, false
	}
	runes := []rune(a.FullText)
	if len(runes) <= MaxArticleTextLen {
		return a.FullText, false
	}
	return string(runes[:MaxArticleTextLen]), true
}

// TruncationMarker is appended to prompt bodies cut by ScoringText.
func TruncationMarker() string {
	return truncatedMarker
}
