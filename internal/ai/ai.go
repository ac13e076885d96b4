// Package ai defines the provider-neutral contracts for the AI-assisted
// stages of the pipeline. Concrete providers live in subpackages; callers
// depend only on the narrow capability they need.
package ai

import (
	"context"

	"dailybrief/internal/model"
)

// Candidate is the compact article view sent to a ranking model. Content is
// deliberately absent; title, summary and topics are enough signal and keep
// prompts small.
type Candidate struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Source  string   `json:"source"`
	Topics  []string `json:"topics,omitempty"`
	Score   float64  `json:"score"`
}

// RankedArticle is one model pick, in priority order.
type RankedArticle struct {
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	Priority int    `json:"priority"`
}

// RankResult is a parsed ranking response.
type RankResult struct {
	Selected []RankedArticle `json:"selected"`
	Rejected []string        `json:"rejected,omitempty"`
	Summary  string          `json:"summary,omitempty"`
}

// Ranker picks the most briefing-worthy candidates. Implementations return an
// error for any unusable response; the selector falls back to score order.
type Ranker interface {
	Rank(ctx context.Context, candidates []Candidate, count int, interests []string) (*RankResult, error)
}

// ScriptRequest carries everything a script generation call needs.
type ScriptRequest struct {
	Articles      []model.Article
	BriefingType  string
	TargetMinutes int
	Language      string
}

// ScriptWriter turns selected articles into a spoken-word script.
type ScriptWriter interface {
	WriteScript(ctx context.Context, req ScriptRequest) (string, error)
}

// SpeechSynthesizer renders a script to audio bytes (mp3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, script string, voice string) ([]byte, error)
}

func NewCandidate(a model.Article) Candidate {
	return Candidate{
		ID:      a.ID,
		Title:   a.Title,
		Summary: a.Summary,
		Source:  a.SourceName,
		Topics:  a.Topics,
		Score:   a.Score,
	}
}
