// Package selector picks the articles that make it into a briefing.
//
// The pipeline is score, funnel, rank, diversify. Ranking goes through the
// AI model when one is configured and the budget allows; any failure on that
// path degrades to plain score order, never to an error.
package selector

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"dailybrief/internal/ai"
	"dailybrief/internal/logger"
	"dailybrief/internal/metrics"
	"dailybrief/internal/model"
	"dailybrief/internal/score"
)

// funnel bounds: always rank at least this many candidates, and at most
// funnelFactor per requested slot.
const (
	funnelFloor  = 50
	funnelFactor = 5
)

type Selector struct {
	scorer *score.Scorer
	ranker ai.Ranker
	budget *ai.Budget
	log    *slog.Logger
}

// New builds a selector. ranker may be nil to force score-order selection;
// budget may be nil for unlimited AI usage.
func New(scorer *score.Scorer, ranker ai.Ranker, budget *ai.Budget) *Selector {
	if scorer == nil {
		scorer = score.New()
	}
	return &Selector{
		scorer: scorer,
		ranker: ranker,
		budget: budget,
		log:    logger.With("selector"),
	}
}

// Select scores the articles, narrows them to a candidate funnel, ranks the
// funnel and diversifies the picks. The returned slice holds at most count
// articles in priority order.
func (s *Selector) Select(ctx context.Context, articles []model.Article, count int, interests []string) *model.SelectionResult {
	if count < 1 || len(articles) == 0 {
		return &model.SelectionResult{Fallback: true}
	}

	scored := s.scorer.Apply(articles, interests)
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	limit := funnelFactor * count
	if limit < funnelFloor {
		limit = funnelFloor
	}
	if limit > len(scored) {
		limit = len(scored)
	}
	funnel := scored[:limit]

	result := s.rank(ctx, funnel, count, interests)
	result.Articles = diversify(result.Articles, count)
	return result
}

// rank runs the AI path when available, falling back to score order.
func (s *Selector) rank(ctx context.Context, funnel []model.Article, count int, interests []string) *model.SelectionResult {
	if s.ranker == nil {
		return fallback(funnel, count)
	}
	if s.budget != nil && !s.budget.CanRank() {
		s.log.Warn("rank budget exhausted, using score order")
		return degraded(funnel, count)
	}

	candidates := make([]ai.Candidate, len(funnel))
	byID := make(map[string]model.Article, len(funnel))
	for i, a := range funnel {
		candidates[i] = ai.NewCandidate(a)
		byID[a.ID] = a
	}

	if s.budget != nil {
		if err := s.budget.RecordRank(); err != nil {
			s.log.Warn("rank budget exhausted, using score order", "error", err)
			return degraded(funnel, count)
		}
	}

	ranked, err := s.ranker.Rank(ctx, candidates, count, interests)
	if err != nil {
		s.log.Warn("AI ranking failed, using score order", "error", err)
		return degraded(funnel, count)
	}

	// Keep every valid pick here; diversify trims down to count so language
	// and topic spread decide which overflow picks are cut.
	var picks []model.Article
	for _, sel := range ranked.Selected {
		a, ok := byID[sel.ID]
		if !ok {
			s.log.Warn("ranking returned unknown article id", "id", sel.ID)
			continue
		}
		picks = append(picks, a)
	}
	if len(picks) == 0 {
		s.log.Warn("AI ranking matched no candidates, using score order")
		return degraded(funnel, count)
	}

	return &model.SelectionResult{
		Articles:  picks,
		Rejected:  ranked.Rejected,
		Rationale: ranked.Summary,
	}
}

// degraded is fallback plus the metric bump, for paths where the AI route
// existed but could not serve.
func degraded(funnel []model.Article, count int) *model.SelectionResult {
	metrics.Global.IncrementRankFallbacks()
	return fallback(funnel, count)
}

// fallback takes the top-scored articles as-is.
func fallback(funnel []model.Article, count int) *model.SelectionResult {
	if count > len(funnel) {
		count = len(funnel)
	}
	picks := make([]model.Article, count)
	copy(picks, funnel[:count])
	return &model.SelectionResult{Articles: picks, Fallback: true}
}

// diversify reorders picks so no single language or topic cluster dominates.
// With count or fewer picks there is nothing to trade off and the order is
// kept verbatim.
func diversify(picks []model.Article, count int) []model.Article {
	if len(picks) <= count {
		return picks
	}

	used := make([]bool, len(picks))
	var out []model.Article

	// First pass guarantees every language present gets one slot.
	langSeen := map[string]bool{}
	for i, a := range picks {
		if len(out) == count {
			break
		}
		if !langSeen[a.Language] {
			langSeen[a.Language] = true
			used[i] = true
			out = append(out, a)
		}
	}

	// Second pass fills remaining slots in priority order, skipping articles
	// whose topics are fully covered by what is already in.
	seenTopics := map[string]bool{}
	for _, a := range out {
		for _, t := range a.Topics {
			seenTopics[strings.ToLower(t)] = true
		}
	}
	for i, a := range picks {
		if len(out) == count {
			break
		}
		if used[i] || topicsCovered(a, seenTopics) {
			continue
		}
		used[i] = true
		out = append(out, a)
		for _, t := range a.Topics {
			seenTopics[strings.ToLower(t)] = true
		}
	}

	// Final pass tops up from whatever is left.
	for i, a := range picks {
		if len(out) == count {
			break
		}
		if used[i] {
			continue
		}
		used[i] = true
		out = append(out, a)
	}

	return out
}

// topicsCovered reports whether every topic of a is already represented.
// Untagged articles are never considered covered.
func topicsCovered(a model.Article, seen map[string]bool) bool {
	if len(a.Topics) == 0 || len(seen) == 0 {
		return false
	}
	for _, t := range a.Topics {
		if !seen[strings.ToLower(t)] {
			return false
		}
	}
	return true
}
