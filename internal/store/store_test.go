package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddSource_UpsertByURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.AddSource(ctx, model.ContentSource{
		Name: "Feed", URL: "https://example.com/feed", Enabled: true, Weight: 1.0, Language: "en",
	})
	require.NoError(t, err)
	require.NotZero(t, id1)

	// Same URL again with new metadata keeps the row, updates it.
	id2, err := s.AddSource(ctx, model.ContentSource{
		Name: "Renamed Feed", URL: "https://example.com/feed", Enabled: true, Weight: 1.7, Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	sources, err := s.GetSources(ctx, true)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Renamed Feed", sources[0].Name)
	assert.Equal(t, 1.7, sources[0].Weight)
}

func TestGetSources_EnabledFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddSource(ctx, model.ContentSource{Name: "on", URL: "https://on.example/feed", Enabled: true, Weight: 1})
	require.NoError(t, err)
	_, err = s.AddSource(ctx, model.ContentSource{Name: "off", URL: "https://off.example/feed", Enabled: false, Weight: 1})
	require.NoError(t, err)

	enabled, err := s.GetSources(ctx, true)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)

	all, err := s.GetSources(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSourceFetchBookkeeping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddSource(ctx, model.ContentSource{Name: "f", URL: "https://f.example/feed", Enabled: true, Weight: 1})
	require.NoError(t, err)

	require.NoError(t, s.IncrementSourceError(ctx, id))
	require.NoError(t, s.IncrementSourceError(ctx, id))

	sources, _ := s.GetSources(ctx, true)
	require.Len(t, sources, 1)
	assert.Equal(t, 2, sources[0].ErrorCount)
	assert.Nil(t, sources[0].LastFetched)

	// A successful fetch stamps the time and resets the error streak.
	require.NoError(t, s.UpdateSourceFetchTime(ctx, id))
	sources, _ = s.GetSources(ctx, true)
	assert.Equal(t, 0, sources[0].ErrorCount)
	assert.NotNil(t, sources[0].LastFetched)
}

func testArticle(url string, score float64) model.Article {
	published := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	return model.Article{
		ID:           model.ArticleID(url),
		Title:        "Some headline",
		Summary:      "A short summary",
		Content:      "Longer content body",
		URL:          url,
		PublishedAt:  &published,
		FetchedAt:    time.Now().UTC(),
		Language:     "en",
		Topics:       []string{"economy", "policy"},
		SourceWeight: 1.2,
		Score:        score,
	}
}

func TestUpsertArticle_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testArticle("https://example.com/story", 50)
	require.NoError(t, s.UpsertArticle(ctx, a))

	// Same URL fetched again: same id, row is replaced not duplicated.
	a.Title = "Updated headline"
	a.Score = 72
	require.NoError(t, s.UpsertArticle(ctx, a))

	n, err := s.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetArticles(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Updated headline", got[0].Title)
	assert.Equal(t, 72.0, got[0].Score)
	assert.Equal(t, []string{"economy", "policy"}, got[0].Topics)
	require.NotNil(t, got[0].PublishedAt)
}

func TestGetArticles_ScoreFilterAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, score := range []float64{10, 40, 70, 90} {
		a := testArticle(storyURL(i), score)
		require.NoError(t, s.UpsertArticle(ctx, a))
	}

	got, err := s.GetArticles(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 90.0, got[0].Score, "highest score first")

	got, err = s.GetArticles(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func storyURL(i int) string {
	return "https://example.com/story/" + string(rune('a'+i))
}

func TestCleanupOldArticles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fresh := testArticle("https://example.com/fresh", 10)
	stale := testArticle("https://example.com/stale", 10)
	stale.FetchedAt = time.Now().AddDate(0, 0, -30)
	require.NoError(t, s.UpsertArticle(ctx, fresh))
	require.NoError(t, s.UpsertArticle(ctx, stale))

	removed, err := s.CleanupOldArticles(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	n, _ := s.CountArticles(ctx)
	assert.Equal(t, 1, n)
}

func TestBriefingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := &model.Briefing{
		Date:        "2026-09-01",
		Type:        "daily",
		ArticleIDs:  []string{"aaa", "bbb"},
		Script:      "Good day. That is all.",
		AudioPath:   "audio/briefing.mp3",
		Duration:    420,
		Status:      "ready",
		GeneratedAt: time.Now().UTC(),
	}
	id, err := s.SaveBriefing(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)

	got, err := s.GetBriefing(ctx, "2026-09-01", "daily")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"aaa", "bbb"}, got.ArticleIDs)
	assert.Equal(t, 420, got.Duration)
	assert.Equal(t, "ready", got.Status)

	// Missing briefing is a nil result, not an error.
	missing, err := s.GetBriefing(ctx, "2026-09-02", "daily")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
