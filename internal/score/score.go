// Package score computes the composite article score from four sub-scores.
package score

import (
	"strings"
	"time"

	"dailybrief/internal/model"
)

// Composite weights. They sum to 100; each sub-score is normalized to 0-100
// before weighting, so the composite also lands in 0-100.
const (
	ImportanceWeight = 40
	RelevanceWeight  = 30
	FreshnessWeight  = 20
	QualityWeight    = 10
)

// Freshness tiers (hours).
const (
	freshnessExcellent = 2
	freshnessGood      = 12
	freshnessFair      = 24
)

// Quality length thresholds (words).
const (
	qualityMinWords   = 500
	qualityMaxWords   = 3000
	qualityIdealWords = 1500
)

// Source weights observed in the wild run 0.5-2.0; importance rescales that
// band to 0-10.
const (
	weightFloor = 0.5
	weightCeil  = 2.0
)

type Scorer struct {
	now func() time.Time
}

func New() *Scorer {
	return &Scorer{now: time.Now}
}

// NewAt pins the clock, which keeps freshness assertions stable in tests.
func NewAt(now func() time.Time) *Scorer {
	return &Scorer{now: now}
}

// Apply computes and sets the composite score on every article and returns
// the same slice.
func (s *Scorer) Apply(articles []model.Article, interests []string) []model.Article {
	for i := range articles {
		articles[i].Score = s.Composite(articles[i], interests)
	}
	return articles
}

// Composite returns the weighted sum of the four sub-scores.
func (s *Scorer) Composite(a model.Article, interests []string) float64 {
	return Importance(a)*ImportanceWeight/100 +
		Relevance(a, interests)*RelevanceWeight/100 +
		s.Freshness(a)*FreshnessWeight/100 +
		Quality(a)*QualityWeight/100
}

// Importance rescales the source weight into 0-10 and adds fixed bonuses for
// full content and topic tags.
func Importance(a model.Article) float64 {
	score := (a.SourceWeight - weightFloor) * 10 / (weightCeil - weightFloor)
	score = clamp(score, 0, 10)

	if a.Content != "" {
		score += 10
	}
	if len(a.Topics) > 0 {
		score += 5
	}
	return clamp(score, 0, 100)
}

// Relevance scores interest-keyword matches in title+summary and overlap
// with topic tags. With no interests the score is neutral; with interests
// and no matches it bottoms out at a flat 20 rather than zero.
func Relevance(a model.Article, interests []string) float64 {
	if len(interests) == 0 {
		return 50
	}

	text := strings.ToLower(a.Title + " " + a.Summary)

	score := 0.0
	matches := 0
	for _, interest := range interests {
		if strings.Contains(text, strings.ToLower(interest)) {
			matches++
		}
	}
	if matches > 0 {
		score += min(30, float64(matches)*15)
	}

	if len(a.Topics) > 0 {
		topicMatches := 0
		for _, interest := range interests {
			li := strings.ToLower(interest)
			for _, topic := range a.Topics {
				if strings.Contains(strings.ToLower(topic), li) {
					topicMatches++
					break
				}
			}
		}
		if topicMatches > 0 {
			score += min(20, float64(topicMatches)*10)
		}
	}

	if score == 0 {
		score = 20
	}
	return clamp(score, 0, 100)
}

// Freshness maps article age onto tiers, decaying linearly past a day.
// Unknown publish dates are neutral.
func (s *Scorer) Freshness(a model.Article) float64 {
	if a.PublishedAt == nil {
		return 50
	}

	ageHours := s.now().Sub(*a.PublishedAt).Hours()
	switch {
	case ageHours < freshnessExcellent:
		return 100
	case ageHours < freshnessGood:
		return 75
	case ageHours < freshnessFair:
		return 50
	default:
		daysOld := ageHours / 24
		return clamp(50-daysOld*10, 0, 100)
	}
}

// Quality starts at a neutral base and adjusts for content length, summary
// presence, author attribution and a crude readability check.
func Quality(a model.Article) float64 {
	score := 50.0

	text := a.Content
	if text == "" {
		text = a.Summary
	}
	words := len(strings.Fields(text))

	switch {
	case words >= qualityMinWords && words <= qualityMaxWords:
		if abs(words-qualityIdealWords) < 200 {
			score += 20
		} else {
			score += 10
		}
	case words < qualityMinWords:
		score -= 10
	default:
		score -= 5
	}

	if len(a.Summary) > 50 {
		score += 10
	}
	if a.Author != "" {
		score += 5
	}

	if summaryWords := strings.Fields(a.Summary); len(summaryWords) > 0 {
		total := 0
		for _, w := range summaryWords {
			total += len([]rune(w))
		}
		avg := float64(total) / float64(len(summaryWords))
		if avg >= 4 && avg <= 7 {
			score += 10
		}
	}

	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
