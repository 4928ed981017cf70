// Package dedup filters articles already seen in higher-priority sources.
//
// An article is identified by its URL and by its normalized title; a match
// on either marks it as seen. An article with neither is never a duplicate.
package dedup

import (
	"strings"

	"github.com/dyike/pricemove/internal/models"
)

// IdentitySet holds the identities of already-seen articles.
type IdentitySet map[string]struct{}

// BuildIdentitySet collects identities from articles.
func BuildIdentitySet(articles ...[]models.Article) IdentitySet {
	set := make(IdentitySet)
	for _, list := range articles {
		set.Add(list...)
	}
	return set
}

// Add records the identities of articles.
func (s IdentitySet) Add(articles ...models.Article) {
	for _, a := range articles {
		for _, key := range keys(a) {
			s[key] = struct{}{}
		}
	}
}

// Contains reports whether any identity of a is in the set.
func (s IdentitySet) Contains(a models.Article) bool {
	for _, key := range keys(a) {
		if _, ok := s[key]; ok {
			return true
		}
	}
	return false
}

// FilterNew returns the articles of list not present in set, in order.
// The input slice is not modified.
func FilterNew(list []models.Article, set IdentitySet) []models.Article {
	out := make([]models.Article, 0, len(list))
	for _, a := range list {
		if set.Contains(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func keys(a models.Article) []string {
	var out []string
	if u := strings.TrimSpace(a.URL); u != "" {
		out = append(out, "url:"+u)
	}
	if t := models.NormalizeTitle(a.Title); t != "" {
		out = append(out, "title:"+t)
	}
	return out
}
