// Package model holds the core data types shared across the briefing pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// Article is a single normalized piece of fetched content.
//
// SourceWeight is the owning source's multiplier, set at ingestion and never
// touched afterwards. Score is the composite score computed by the scorer.
// Keeping them separate avoids the stage ordering trap of one field meaning
// two things.
type Article struct {
	ID           string     `json:"id"`
	SourceID     int64      `json:"source_id,omitempty"`
	SourceName   string     `json:"source_name,omitempty"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	Content      string     `json:"content"`
	URL          string     `json:"url"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Language     string     `json:"language"`
	Topics       []string   `json:"topics,omitempty"`
	SourceWeight float64    `json:"source_weight"`
	Score        float64    `json:"score"`
}

// ContentSource is a configured feed endpoint. ID is zero for transient
// sources (preset packs, ad-hoc feeds) that were never persisted.
type ContentSource struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Category    string     `json:"category"`
	Language    string     `json:"language"`
	Enabled     bool       `json:"enabled"`
	Weight      float64    `json:"weight"`
	LastFetched *time.Time `json:"last_fetched,omitempty"`
	ErrorCount  int        `json:"error_count"`
}

// Briefing is one generated audio briefing run.
type Briefing struct {
	ID          int64     `json:"id,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Type        string    `json:"type"`
	ArticleIDs  []string  `json:"article_ids"`
	Script      string    `json:"script"`
	AudioPath   string    `json:"audio_path"`
	Duration    int       `json:"duration"` // seconds
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SelectionResult is the outcome of one selection round. It is ephemeral and
// never persisted; Rationale is only set when the AI path produced it, and
// Fallback reports that score order stood in for the model.
type SelectionResult struct {
	Articles  []Article `json:"articles"`
	Rejected  []string  `json:"rejected,omitempty"`
	Rationale string    `json:"rationale,omitempty"`
	Fallback  bool      `json:"fallback"`
}

// NormalizeURL canonicalizes a URL for identity purposes: lowercased scheme
// and host, no fragment, no trailing slash. Unparseable input is returned
// trimmed so the identity function still behaves deterministically.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// ArticleID derives the stable article identifier from a URL. Same URL, same
// ID -- that is what makes the repository upsert idempotent.
func ArticleID(rawURL string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])[:16]
}
