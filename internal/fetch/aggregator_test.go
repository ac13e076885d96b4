package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/model"
	"dailybrief/internal/retry"
)

type fakeFetcher struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	perSource   map[string][]model.Article
	failURLs    map[string]bool
	delay       time.Duration
}

func (f *fakeFetcher) Fetch(_ context.Context, src model.ContentSource) ([]model.Article, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.failURLs[src.URL] {
		return nil, errors.New("boom")
	}
	return f.perSource[src.URL], nil
}

type fakeRepo struct {
	mu       sync.Mutex
	sources  []model.ContentSource
	upserted []model.Article
	stamped  []int64
	errored  []int64
}

func (r *fakeRepo) GetSources(context.Context, bool) ([]model.ContentSource, error) {
	return r.sources, nil
}

func (r *fakeRepo) UpdateSourceFetchTime(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamped = append(r.stamped, id)
	return nil
}

func (r *fakeRepo) IncrementSourceError(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errored = append(r.errored, id)
	return nil
}

func (r *fakeRepo) UpsertArticle(_ context.Context, a model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, a)
	return nil
}

func source(id int64, name, url string, weight float64) model.ContentSource {
	return model.ContentSource{ID: id, Name: name, URL: url, Enabled: true, Weight: weight, Language: "en"}
}

func articleFor(url, title string) model.Article {
	return model.Article{ID: model.ArticleID(url), URL: url, Title: title, Language: "en"}
}

func TestFetchAll_CollectsAndPersists(t *testing.T) {
	s1 := source(1, "one", "https://one.example/feed", 1.0)
	s2 := source(2, "two", "https://two.example/feed", 1.5)
	fetcher := &fakeFetcher{perSource: map[string][]model.Article{
		s1.URL: {articleFor("https://one.example/a", "first distinct story here")},
		s2.URL: {articleFor("https://two.example/b", "second unrelated story there")},
	}}
	repo := &fakeRepo{sources: []model.ContentSource{s1, s2}}

	agg := New(fetcher, repo, 4, retry.Config{MaxAttempts: 1}, time.Minute)
	articles, failures := agg.FetchAll(context.Background(), Options{})

	assert.Empty(t, failures)
	assert.Len(t, articles, 2)
	assert.Len(t, repo.upserted, 2)
	assert.ElementsMatch(t, []int64{1, 2}, repo.stamped)
}

func TestFetchAll_FailureIsolation(t *testing.T) {
	good := source(1, "good", "https://good.example/feed", 1.0)
	bad := source(2, "bad", "https://bad.example/feed", 1.0)
	fetcher := &fakeFetcher{
		perSource: map[string][]model.Article{
			good.URL: {articleFor("https://good.example/a", "survives the bad sibling")},
		},
		failURLs: map[string]bool{bad.URL: true},
	}
	repo := &fakeRepo{sources: []model.ContentSource{good, bad}}

	agg := New(fetcher, repo, 4, retry.Config{MaxAttempts: 1}, time.Minute)
	articles, failures := agg.FetchAll(context.Background(), Options{})

	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].Source)
	assert.Len(t, articles, 1)
	assert.Equal(t, []int64{2}, repo.errored)
	assert.Equal(t, []int64{1}, repo.stamped)
}

func TestFetchAll_ConcurrencyBounded(t *testing.T) {
	var sources []model.ContentSource
	perSource := map[string][]model.Article{}
	for i := 0; i < 20; i++ {
		url := fmt.Sprintf("https://s%d.example/feed", i)
		sources = append(sources, source(int64(i+1), fmt.Sprintf("s%d", i), url, 1.0))
	}
	fetcher := &fakeFetcher{perSource: perSource, delay: 20 * time.Millisecond}
	repo := &fakeRepo{sources: sources}

	agg := New(fetcher, repo, 3, retry.Config{MaxAttempts: 1}, time.Minute)
	agg.FetchAll(context.Background(), Options{})

	assert.Equal(t, 20, fetcher.calls)
	assert.LessOrEqual(t, fetcher.maxInFlight, 3)
}

func TestFetchAll_RetriesBeforeFailing(t *testing.T) {
	bad := source(1, "flaky", "https://flaky.example/feed", 1.0)
	fetcher := &fakeFetcher{failURLs: map[string]bool{bad.URL: true}}
	repo := &fakeRepo{sources: []model.ContentSource{bad}}

	agg := New(fetcher, repo, 1, retry.Config{MaxAttempts: 3, Delay: time.Millisecond}, time.Minute)
	_, failures := agg.FetchAll(context.Background(), Options{})

	require.Len(t, failures, 1)
	assert.Equal(t, 3, fetcher.calls)
}

func TestFetchAll_CacheServesSecondRun(t *testing.T) {
	s := source(1, "cached", "https://cached.example/feed", 1.0)
	fetcher := &fakeFetcher{perSource: map[string][]model.Article{
		s.URL: {articleFor("https://cached.example/a", "some cached story")},
	}}
	repo := &fakeRepo{sources: []model.ContentSource{s}}

	agg := New(fetcher, repo, 1, retry.Config{MaxAttempts: 1}, time.Minute)

	agg.FetchAll(context.Background(), Options{})
	agg.FetchAll(context.Background(), Options{})
	assert.Equal(t, 1, fetcher.calls, "second run should hit the feed cache")

	agg.FetchAll(context.Background(), Options{ForceRefresh: true})
	assert.Equal(t, 2, fetcher.calls, "force refresh bypasses the cache")
}

func TestFetchAll_SharedSourceURLKeptDistinct(t *testing.T) {
	stored := source(1, "stored", "https://dup.example/feed", 1.0)
	adhoc := model.ContentSource{Name: "adhoc", URL: "https://dup.example/feed", Weight: 2.0, Language: "en"}
	fetcher := &fakeFetcher{perSource: map[string][]model.Article{
		stored.URL: {articleFor("https://dup.example/a", "same story from both origins")},
	}}
	repo := &fakeRepo{sources: []model.ContentSource{stored}}

	agg := New(fetcher, repo, 2, retry.Config{MaxAttempts: 1}, time.Minute)
	articles, failures := agg.FetchAll(context.Background(), Options{
		CustomFeeds:  []model.ContentSource{adhoc},
		ForceRefresh: true,
	})

	require.Empty(t, failures)
	assert.Equal(t, 2, fetcher.calls, "origins sharing a URL are fetched independently")
	assert.ElementsMatch(t, []int64{1}, repo.stamped, "the stored origin keeps its bookkeeping")
	assert.Len(t, articles, 1, "the overlap is reconciled per article, by exact URL")
}

func TestFetchAll_CrossSourceDeduplication(t *testing.T) {
	s1 := source(1, "one", "https://one.example/feed", 1.0)
	s2 := source(2, "two", "https://two.example/feed", 1.0)
	dup1 := articleFor("https://one.example/fed", "Fed raises interest rates by 0.25 percent")
	dup2 := articleFor("https://two.example/fed", "Fed raises interest rates by 0.25 points")
	fetcher := &fakeFetcher{perSource: map[string][]model.Article{
		s1.URL: {dup1},
		s2.URL: {dup2},
	}}
	repo := &fakeRepo{sources: []model.ContentSource{s1, s2}}

	agg := New(fetcher, repo, 2, retry.Config{MaxAttempts: 1}, time.Minute)
	articles, _ := agg.FetchAll(context.Background(), Options{})

	assert.Len(t, articles, 1, "near-duplicate stories across sources collapse")
	assert.Len(t, repo.upserted, 1)
}

func TestFetchAll_NoSources(t *testing.T) {
	fetcher := &fakeFetcher{}
	agg := New(fetcher, &fakeRepo{}, 2, retry.Config{MaxAttempts: 1}, time.Minute)

	articles, failures := agg.FetchAll(context.Background(), Options{})
	assert.Empty(t, articles)
	assert.Empty(t, failures)
	assert.Zero(t, fetcher.calls)
}
