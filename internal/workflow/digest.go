package workflow

import (
	"encoding/json"
	"sort"

	"github.com/dyike/pricemove/internal/models"
)

// DigestEntry is the persisted view of one significance record.
type DigestEntry struct {
	Source       string            `json:"source"`
	Kind         models.SourceKind `json:"kind"`
	Significance float64           `json:"significance"`
	Articles     []DigestArticle   `json:"articles"`
	Error        string            `json:"error,omitempty"`
}

type DigestArticle struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// DigestRecords encodes records as a JSON array ordered by significance,
// highest first, then by source.
func DigestRecords(records map[string]models.SignificanceRecord) (string, error) {
	entries := make([]DigestEntry, 0, len(records))
	for id, rec := range records {
		articles := make([]DigestArticle, 0, len(rec.Articles))
		for _, a := range rec.Articles {
			articles = append(articles, DigestArticle{Title: a.Title, URL: a.URL})
		}
		entries = append(entries, DigestEntry{
			Source:       id,
			Kind:         rec.Kind,
			Significance: rec.Significance,
			Articles:     articles,
			Error:        rec.Err,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Significance != entries[j].Significance {
			return entries[i].Significance > entries[j].Significance
		}
		return entries[i].Source < entries[j].Source
	})

	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseDigest decodes a NewsSummary produced by DigestRecords.
func ParseDigest(s string) ([]DigestEntry, error) {
	var entries []DigestEntry
	if s == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(s), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
