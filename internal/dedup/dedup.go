// Package dedup collapses near-duplicate articles across sources.
package dedup

import (
	"sort"
	"strings"
	"time"

	"dailybrief/internal/logger"
	"dailybrief/internal/model"
)

const (
	// SimilarityThreshold is the ratio above which two titles (or two
	// content leads) count as the same story.
	SimilarityThreshold = 0.8

	// titleHintThreshold is the weaker title match that triggers the
	// content comparison.
	titleHintThreshold = 0.5

	// contentPrefixLen bounds how much summary/content is compared.
	contentPrefixLen = 500
)

// KeepPolicy selects the surviving representative of a duplicate group.
type KeepPolicy string

const (
	KeepFirst        KeepPolicy = "first"
	KeepHighestScore KeepPolicy = "highest_score"
	KeepLatest       KeepPolicy = "latest"
)

type Deduplicator struct {
	threshold float64
}

func New() *Deduplicator {
	return &Deduplicator{threshold: SimilarityThreshold}
}

func NewWithThreshold(threshold float64) *Deduplicator {
	return &Deduplicator{threshold: threshold}
}

// Deduplicate returns the unique articles in input order. Exact URL matches
// are rejected outright; near-duplicates keep the higher-scored article,
// with ties going to the first seen.
func (d *Deduplicator) Deduplicate(articles []model.Article) []model.Article {
	if len(articles) == 0 {
		return nil
	}

	seenURLs := make(map[string]struct{}, len(articles))
	var unique []model.Article

	for _, article := range articles {
		normURL := model.NormalizeURL(article.URL)
		if _, dup := seenURLs[normURL]; dup {
			continue
		}

		// Similarity is not transitive, so the incoming article has to be
		// reconciled against every accepted one: each accepted article it
		// outscores is removed, and losing to any one of them drops it.
		keep := true
		kept := unique[:0]
		for _, existing := range unique {
			if keep && d.similar(article, existing) {
				if effectiveScore(article) > effectiveScore(existing) {
					delete(seenURLs, model.NormalizeURL(existing.URL))
					continue
				}
				keep = false
			}
			kept = append(kept, existing)
		}
		unique = kept

		if !keep {
			continue
		}
		unique = append(unique, article)
		seenURLs[normURL] = struct{}{}
	}

	if removed := len(articles) - len(unique); removed > 0 {
		logger.Debug("removed duplicate articles", "count", removed)
	}
	return unique
}

// Merge groups transitively similar articles (first matching group wins, no
// full closure) and keeps one representative per group according to policy.
func (d *Deduplicator) Merge(articles []model.Article, policy KeepPolicy) []model.Article {
	if len(articles) == 0 {
		return nil
	}

	var groups [][]model.Article
	for _, article := range articles {
		placed := false
		for i := range groups {
			if d.similar(article, groups[i][0]) {
				groups[i] = append(groups[i], article)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []model.Article{article})
		}
	}

	merged := make([]model.Article, 0, len(groups))
	for _, group := range groups {
		merged = append(merged, pickRepresentative(group, policy))
	}
	return merged
}

// similar reports whether two articles tell the same story. Articles in
// different languages are never merged.
func (d *Deduplicator) similar(a, b model.Article) bool {
	if a.Language != b.Language {
		return false
	}

	titleRatio := Ratio(strings.ToLower(a.Title), strings.ToLower(b.Title))
	if titleRatio >= d.threshold {
		return true
	}

	if titleRatio >= titleHintThreshold {
		leadA := lead(a)
		leadB := lead(b)
		if leadA != "" && leadB != "" && Ratio(leadA, leadB) >= d.threshold {
			return true
		}
	}
	return false
}

func lead(a model.Article) string {
	text := a.Summary
	if text == "" {
		text = a.Content
	}
	runes := []rune(strings.ToLower(text))
	if len(runes) > contentPrefixLen {
		runes = runes[:contentPrefixLen]
	}
	return string(runes)
}

// effectiveScore is the score dedup compares: the composite score once the
// scorer has run, otherwise the provisional source weight.
func effectiveScore(a model.Article) float64 {
	if a.Score != 0 {
		return a.Score
	}
	return a.SourceWeight
}

func pickRepresentative(group []model.Article, policy KeepPolicy) model.Article {
	if len(group) == 1 {
		return group[0]
	}
	switch policy {
	case KeepFirst:
		return group[0]
	case KeepLatest:
		sorted := make([]model.Article, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return publishedOrZero(sorted[i]).After(publishedOrZero(sorted[j]))
		})
		return sorted[0]
	default: // KeepHighestScore
		best := group[0]
		for _, a := range group[1:] {
			if effectiveScore(a) > effectiveScore(best) {
				best = a
			}
		}
		return best
	}
}

func publishedOrZero(a model.Article) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return time.Time{}
}
