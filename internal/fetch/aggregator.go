// Package fetch aggregates articles from all configured sources concurrently.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dailybrief/internal/cache"
	"dailybrief/internal/dedup"
	"dailybrief/internal/feed"
	"dailybrief/internal/logger"
	"dailybrief/internal/metrics"
	"dailybrief/internal/model"
	"dailybrief/internal/retry"
)

// Repository is the persistence surface the aggregator needs. Sources from
// content packs and ad-hoc config have no stored row; only persisted sources
// get their fetch bookkeeping updated.
type Repository interface {
	GetSources(ctx context.Context, enabledOnly bool) ([]model.ContentSource, error)
	UpdateSourceFetchTime(ctx context.Context, id int64) error
	IncrementSourceError(ctx context.Context, id int64) error
	UpsertArticle(ctx context.Context, a model.Article) error
}

// Fetcher fetches and normalizes one source.
type Fetcher interface {
	Fetch(ctx context.Context, source model.ContentSource) ([]model.Article, error)
}

// SourceError records a source that failed without sinking the whole run.
type SourceError struct {
	Source string
	URL    string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

// Options tunes one aggregation run.
type Options struct {
	PackIDs      []string
	CustomFeeds  []model.ContentSource
	ForceRefresh bool
}

type Aggregator struct {
	fetcher     Fetcher
	repo        Repository
	cache       *cache.Cache
	dedup       *dedup.Deduplicator
	concurrency int
	retries     retry.Config
	cacheTTL    time.Duration
	log         *slog.Logger
}

func New(fetcher Fetcher, repo Repository, concurrency int, retries retry.Config, cacheTTL time.Duration) *Aggregator {
	if concurrency < 1 {
		concurrency = 10
	}
	return &Aggregator{
		fetcher:     fetcher,
		repo:        repo,
		cache:       cache.New(),
		dedup:       dedup.New(),
		concurrency: concurrency,
		retries:     retries,
		cacheTTL:    cacheTTL,
		log:         logger.With("fetch"),
	}
}

// FetchAll resolves the source list, fetches every source with bounded
// concurrency, deduplicates the combined result and persists it. One bad
// source never fails the run; its error comes back in the second return.
func (a *Aggregator) FetchAll(ctx context.Context, opts Options) ([]model.Article, []SourceError) {
	sources := a.resolveSources(ctx, opts)
	if len(sources) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		articles []model.Article
		failures []SourceError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			got, err := a.fetchOne(gctx, src, opts.ForceRefresh)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, SourceError{Source: src.Name, URL: src.URL, Err: err})
				return nil // isolate the failure, keep the siblings running
			}
			articles = append(articles, got...)
			return nil
		})
	}
	_ = g.Wait() // workers only ever return nil

	metrics.Global.AddSourcesFetched(len(sources) - len(failures))
	metrics.Global.AddArticlesFetched(len(articles))

	before := len(articles)
	articles = a.dedup.Deduplicate(articles)
	metrics.Global.AddDuplicatesFiltered(before - len(articles))

	a.persist(ctx, articles)

	a.log.Info("fetch complete",
		"sources", len(sources),
		"failed", len(failures),
		"articles", len(articles),
		"duplicates", before-len(articles))

	return articles, failures
}

// resolveSources concatenates preset packs, ad-hoc feeds and persisted
// sources. Origins sharing a URL are fetched independently; overlap is
// reconciled per article by the dedup stage, not per source.
func (a *Aggregator) resolveSources(ctx context.Context, opts Options) []model.ContentSource {
	var sources []model.ContentSource

	if len(opts.PackIDs) > 0 {
		packSources, err := feed.SourcesFromPacks(opts.PackIDs)
		if err != nil {
			a.log.Warn("failed to load content packs", "error", err)
		}
		sources = append(sources, packSources...)
	}

	sources = append(sources, opts.CustomFeeds...)

	if a.repo != nil {
		stored, err := a.repo.GetSources(ctx, true)
		if err != nil {
			a.log.Warn("failed to load stored sources", "error", err)
		}
		sources = append(sources, stored...)
	}

	resolved := sources[:0]
	for _, src := range sources {
		if model.NormalizeURL(src.URL) == "" {
			continue
		}
		resolved = append(resolved, src)
	}
	return resolved
}

func (a *Aggregator) fetchOne(ctx context.Context, src model.ContentSource, forceRefresh bool) ([]model.Article, error) {
	key := "feed:" + model.NormalizeURL(src.URL)

	if !forceRefresh {
		if cached, ok := a.cache.Get(key); ok {
			if articles, ok := cached.([]model.Article); ok {
				a.log.Debug("cache hit", "source", src.Name)
				return articles, nil
			}
		}
	}

	var articles []model.Article
	err := retry.Do(ctx, a.retries, func() error {
		got, err := a.fetcher.Fetch(ctx, src)
		if err != nil {
			return err
		}
		articles = got
		return nil
	})
	if err != nil {
		metrics.Global.IncrementSourceErrors()
		if src.ID != 0 && a.repo != nil {
			if derr := a.repo.IncrementSourceError(ctx, src.ID); derr != nil {
				a.log.Warn("failed to record source error", "source", src.Name, "error", derr)
			}
		}
		a.log.Warn("source fetch failed", "source", src.Name, "error", err)
		return nil, err
	}

	a.cache.Set(key, articles, a.cacheTTL)

	if src.ID != 0 && a.repo != nil {
		if derr := a.repo.UpdateSourceFetchTime(ctx, src.ID); derr != nil {
			a.log.Warn("failed to stamp source fetch time", "source", src.Name, "error", derr)
		}
	}

	a.log.Debug("source fetched", "source", src.Name, "articles", len(articles))
	return articles, nil
}

func (a *Aggregator) persist(ctx context.Context, articles []model.Article) {
	if a.repo == nil {
		return
	}
	for _, art := range articles {
		if err := a.repo.UpsertArticle(ctx, art); err != nil {
			a.log.Warn("failed to persist article", "id", art.ID, "error", err)
		}
	}
}
