package selector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/ai"
	"dailybrief/internal/model"
	"dailybrief/internal/score"
)

type fakeRanker struct {
	result *ai.RankResult
	err    error
	calls  int
	gotLen int
}

func (f *fakeRanker) Rank(_ context.Context, candidates []ai.Candidate, _ int, _ []string) (*ai.RankResult, error) {
	f.calls++
	f.gotLen = len(candidates)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func fixedScorer() *score.Scorer {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return score.NewAt(func() time.Time { return now })
}

func makeArticles(n int) []model.Article {
	articles := make([]model.Article, n)
	for i := range articles {
		articles[i] = model.Article{
			ID:           fmt.Sprintf("a%02d", i),
			Title:        fmt.Sprintf("story number %d with a distinct headline", i),
			Language:     "en",
			SourceWeight: 0.5 + float64(n-i)*0.01, // descending weight, descending score
		}
	}
	return articles
}

func TestSelect_FallbackWithoutRanker(t *testing.T) {
	s := New(fixedScorer(), nil, nil)

	got := s.Select(context.Background(), makeArticles(20), 5, nil)
	require.Len(t, got.Articles, 5)
	assert.True(t, got.Fallback)
	assert.Equal(t, "a00", got.Articles[0].ID, "fallback should follow score order")
}

func TestSelect_FallbackOnRankerError(t *testing.T) {
	ranker := &fakeRanker{err: errors.New("model unavailable")}
	s := New(fixedScorer(), ranker, nil)

	got := s.Select(context.Background(), makeArticles(20), 5, nil)
	require.Len(t, got.Articles, 5)
	assert.True(t, got.Fallback)
	assert.Equal(t, 1, ranker.calls)
}

func TestSelect_AIPathUsed(t *testing.T) {
	ranker := &fakeRanker{result: &ai.RankResult{
		Selected: []ai.RankedArticle{
			{ID: "a03", Priority: 1},
			{ID: "a07", Priority: 2},
		},
		Summary: "two complementary stories",
	}}
	s := New(fixedScorer(), ranker, nil)

	got := s.Select(context.Background(), makeArticles(20), 2, nil)
	require.Len(t, got.Articles, 2)
	assert.False(t, got.Fallback)
	assert.Equal(t, "a03", got.Articles[0].ID)
	assert.Equal(t, "a07", got.Articles[1].ID)
	assert.Equal(t, "two complementary stories", got.Rationale)
}

func TestSelect_UnknownIDsDropped(t *testing.T) {
	ranker := &fakeRanker{result: &ai.RankResult{
		Selected: []ai.RankedArticle{
			{ID: "a01", Priority: 1},
			{ID: "hallucinated", Priority: 2},
			{ID: "a02", Priority: 3},
		},
	}}
	s := New(fixedScorer(), ranker, nil)

	got := s.Select(context.Background(), makeArticles(10), 3, nil)
	require.Len(t, got.Articles, 2)
	assert.Equal(t, "a01", got.Articles[0].ID)
	assert.Equal(t, "a02", got.Articles[1].ID)
}

func TestSelect_AllUnknownIDsFallsBack(t *testing.T) {
	ranker := &fakeRanker{result: &ai.RankResult{
		Selected: []ai.RankedArticle{{ID: "nope", Priority: 1}},
	}}
	s := New(fixedScorer(), ranker, nil)

	got := s.Select(context.Background(), makeArticles(10), 3, nil)
	require.Len(t, got.Articles, 3)
	assert.True(t, got.Fallback)
}

func TestSelect_FunnelBounds(t *testing.T) {
	ranker := &fakeRanker{err: errors.New("force fallback")}
	s := New(fixedScorer(), ranker, nil)

	// Small pool: whole pool goes to the ranker.
	s.Select(context.Background(), makeArticles(30), 5, nil)
	assert.Equal(t, 30, ranker.gotLen)

	// Large pool, small count: floor of 50 candidates.
	s.Select(context.Background(), makeArticles(200), 5, nil)
	assert.Equal(t, 50, ranker.gotLen)

	// Large count: funnelFactor per slot.
	s.Select(context.Background(), makeArticles(200), 15, nil)
	assert.Equal(t, 75, ranker.gotLen)
}

func TestSelect_EmptyInput(t *testing.T) {
	s := New(fixedScorer(), nil, nil)
	got := s.Select(context.Background(), nil, 5, nil)
	assert.Empty(t, got.Articles)
	assert.True(t, got.Fallback)
}

func TestSelect_BudgetExhaustedSkipsAI(t *testing.T) {
	ranker := &fakeRanker{result: &ai.RankResult{
		Selected: []ai.RankedArticle{{ID: "a01", Priority: 1}},
	}}
	budget := ai.NewBudget(0, 0, 0, 1)
	assert.NoError(t, budget.RecordRank()) // spend the single allowed request

	s := New(fixedScorer(), ranker, budget)
	got := s.Select(context.Background(), makeArticles(10), 3, nil)

	assert.Equal(t, 0, ranker.calls, "exhausted budget must not reach the model")
	assert.True(t, got.Fallback)
	require.Len(t, got.Articles, 3)
}

func TestDiversify_LanguageSpread(t *testing.T) {
	picks := []model.Article{
		{ID: "en1", Language: "en"},
		{ID: "en2", Language: "en"},
		{ID: "en3", Language: "en"},
		{ID: "zh1", Language: "zh"},
		{ID: "zh2", Language: "zh"},
	}

	got := diversify(picks, 3)
	require.Len(t, got, 3)
	langs := map[string]int{}
	for _, a := range got {
		langs[a.Language]++
	}
	assert.Equal(t, 1, langs["zh"], "every language present should get a slot")
	assert.Equal(t, 2, langs["en"])
	assert.Equal(t, "en1", got[0].ID, "priority order still leads")
}

func TestDiversify_SkipsFullyCoveredTopics(t *testing.T) {
	picks := []model.Article{
		{ID: "a", Language: "en", Topics: []string{"ai", "chips"}},
		{ID: "b", Language: "en", Topics: []string{"ai"}},      // covered by a
		{ID: "c", Language: "en", Topics: []string{"climate"}}, // fresh topic
		{ID: "d", Language: "en", Topics: []string{"chips"}},
	}

	got := diversify(picks, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID, "a candidate with an unseen topic should beat a covered one")
}

func TestDiversify_NoTrimmingNeeded(t *testing.T) {
	picks := []model.Article{
		{ID: "a", Language: "en"},
		{ID: "b", Language: "en"},
	}
	got := diversify(picks, 5)
	assert.Equal(t, picks, got, "count or fewer picks pass through untouched")
}
